package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

var ErrLoginFailed = errors.New("qbittorrent login failed")

// QBittorrent adds magnets to a qBittorrent instance through its Web API.
type QBittorrent struct {
	baseURL    string
	username   string
	password   string
	savePath   string
	httpClient *http.Client

	mu       sync.Mutex
	loggedIn bool
}

// QBittorrentOptions configures the Web API client.
type QBittorrentOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	SavePath string
	Timeout  time.Duration
}

// NewQBittorrent creates a Web API client. Host may carry a scheme; plain
// hosts use http.
func NewQBittorrent(opts QBittorrentOptions) *QBittorrent {
	jar, _ := cookiejar.New(nil)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	host := strings.TrimRight(opts.Host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if opts.Port > 0 {
		host = fmt.Sprintf("%s:%d", host, opts.Port)
	}

	return &QBittorrent{
		baseURL:  host,
		username: opts.Username,
		password: opts.Password,
		savePath: opts.SavePath,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

func (c *QBittorrent) Name() string { return "qbittorrent" }

// Login authenticates with the qBittorrent API
func (c *QBittorrent) Login(ctx context.Context) error {
	data := url.Values{}
	data.Set("username", c.username)
	data.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/auth/login", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// qBittorrent rejects logins whose Referer/Origin does not match.
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to qBittorrent: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if strings.TrimSpace(string(body)) != "Ok." {
		return fmt.Errorf("%w: %s", ErrLoginFailed, strings.TrimSpace(string(body)))
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

func (c *QBittorrent) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	ok := c.loggedIn
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.Login(ctx)
}

// Version returns the qBittorrent application version
func (c *QBittorrent) Version(ctx context.Context) (string, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/app/version", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version request: HTTP %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(body)), nil
}

// Send adds the magnet, retrying once with a fresh login when the session
// has expired.
func (c *QBittorrent) Send(ctx context.Context, magnet string) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	status, err := c.addMagnet(ctx, magnet)
	if status == http.StatusForbidden {
		if err := c.Login(ctx); err != nil {
			return err
		}
		_, err = c.addMagnet(ctx, magnet)
	}
	return err
}

func (c *QBittorrent) addMagnet(ctx context.Context, magnet string) (int, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	_ = writer.WriteField("urls", magnet)
	if c.savePath != "" {
		_ = writer.WriteField("savepath", c.savePath)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/torrents/add", &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("failed to add torrent: HTTP %d %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if strings.TrimSpace(string(respBody)) == "Fails." {
		return resp.StatusCode, errors.New("failed to add torrent: rejected by qBittorrent")
	}
	return resp.StatusCode, nil
}

// Has reports whether a torrent with the given info hash is known to
// qBittorrent.
func (c *QBittorrent) Has(ctx context.Context, hash string) (bool, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return false, err
	}

	u := c.baseURL + "/api/v2/torrents/info?hashes=" + url.QueryEscape(strings.ToLower(hash))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("torrent info: HTTP %d", resp.StatusCode)
	}

	var torrents []struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&torrents); err != nil {
		return false, err
	}
	return len(torrents) > 0, nil
}
