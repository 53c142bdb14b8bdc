package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SendsBrowserSignature(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	s, err := NewSession(Options{})
	require.NoError(t, err)

	resp, err := s.Client().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, UserAgent(), got.Get("User-Agent"))
	assert.Equal(t, `"Windows"`, got.Get("Sec-Ch-Ua-Platform"))
	assert.Contains(t, got.Get("Accept"), "text/html")
}

func TestTransport_KeepsExplicitHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	s, err := NewSession(Options{})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be mutated")
}

func TestSession_ResetDropsCookies(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("cf_clearance"); err == nil {
			sawCookie = true
		}
		http.SetCookie(w, &http.Cookie{Name: "cf_clearance", Value: "token", Path: "/"})
	}))
	defer srv.Close()

	s, err := NewSession(Options{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := s.Client().Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.True(t, sawCookie, "cookie should persist within a session")

	s.Reset()
	assert.Equal(t, 1, s.Resets())

	u, _ := url.Parse(srv.URL)
	assert.Empty(t, s.Client().Jar.Cookies(u))

	sawCookie = false
	resp, err := s.Client().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, sawCookie, "cookie must not survive a reset")
}

func TestNewSession_Proxy(t *testing.T) {
	s, err := NewSession(Options{ProxyURL: "http://127.0.0.1:8080"})
	require.NoError(t, err)
	assert.NotNil(t, s.base.Proxy)

	s, err = NewSession(Options{})
	require.NoError(t, err)
	assert.Nil(t, s.base.Proxy)
	assert.Equal(t, DefaultTimeout, s.Timeout())
}

func TestNewSession_InvalidProxyURL(t *testing.T) {
	_, err := NewSession(Options{ProxyURL: "http://[::1"})
	require.Error(t, err)

	_, err = NewSession(Options{ProxyURL: "localhost"})
	require.Error(t, err)
}
