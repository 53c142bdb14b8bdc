// Package httpx builds the HTTP clients used against upstream torrent sources.
//
// Every request carries one consistent desktop-browser signature so that
// trivial bot filters see an ordinary visitor, and cookie state lives in a
// Session that can be thrown away when the caller moves to another mirror.
package httpx

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// browserHeaders is a Chrome-on-Windows desktop signature. The values must stay
// mutually consistent: a Windows UA with a Linux platform hint is a bot tell.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Sec-Ch-Ua":                 `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Upgrade-Insecure-Requests": "1",
}

// UserAgent returns the browser user agent presented upstream.
func UserAgent() string {
	return browserHeaders["User-Agent"]
}

// Transport stamps the browser signature on every request that does not
// already set the header itself.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone so the caller's request headers are left untouched.
	r := req.Clone(req.Context())
	for k, v := range browserHeaders {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.Base.RoundTrip(r)
}

// Options configures a Session.
type Options struct {
	Timeout  time.Duration
	ProxyURL string
}

// Session is an HTTP client whose cookie jar and pooled connections can be
// discarded with Reset. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	base    *http.Transport
	rt      http.RoundTripper
	timeout time.Duration
	client  *http.Client
	resets  int
}

// NewSession builds a browser-emulating session.
func NewSession(opts Options) (*Session, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url must include scheme and host")
		}
		base.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Session{
		base:    base,
		rt:      &Transport{Base: base},
		timeout: timeout,
	}
	s.client = s.newClient()
	return s, nil
}

func (s *Session) newClient() *http.Client {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &http.Client{
		Transport: s.rt,
		Jar:       jar,
		Timeout:   s.timeout,
	}
}

// Client returns the current client. Hold on to it only for a single request
// cycle: after Reset a fresh client replaces it.
func (s *Session) Client() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Timeout returns the per-request timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Reset drops cookies and idle connections so the next request starts cold.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = s.newClient()
	s.base.CloseIdleConnections()
	s.resets++
}

// Resets counts how many times the session has been reset.
func (s *Session) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
