package provider

import (
	"context"
	"io"
	"net/http"
)

// maxBodyBytes bounds how much of an upstream page is read.
const maxBodyBytes = 8 << 20

// Get performs one GET and classifies the outcome. The body of a 2xx
// response is returned in full.
func Get(ctx context.Context, c *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, Transport(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, Upstream(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, Transport(url, err)
	}
	return body, nil
}
