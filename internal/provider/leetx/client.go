package leetx

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/litescript/ls-torrent-search/internal/httpx"
	"github.com/litescript/ls-torrent-search/internal/provider"
	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// Client performs single request cycles against a given mirror. It keeps no
// notion of which mirror is current.
type Client struct {
	session *httpx.Session
}

// NewClient returns a client sending requests through session.
func NewClient(session *httpx.Session) *Client {
	return &Client{session: session}
}

// Session returns the underlying HTTP session.
func (c *Client) Session() *httpx.Session {
	return c.session
}

// Search fetches the first listing page for req from the mirror at base.
func (c *Client) Search(ctx context.Context, base string, req torrent.SearchRequest) ([]torrent.Raw, error) {
	req = req.WithDefaults()
	u := SearchURL(base, req, 1)

	doc, err := c.document(ctx, u)
	if err != nil {
		return nil, err
	}

	raws, err := ParseSearch(doc, req.Category)
	if err != nil {
		return nil, provider.Parse(u, "%v", err)
	}
	if req.Limit > 0 && len(raws) > req.Limit {
		raws = raws[:req.Limit]
	}
	return raws, nil
}

// Info fetches the detail page of torrent id from the mirror at base.
func (c *Client) Info(ctx context.Context, base, id string) (torrent.Raw, error) {
	if id == "" {
		return nil, errors.New("empty torrent id")
	}
	u := InfoURL(base, id)

	doc, err := c.document(ctx, u)
	if err != nil {
		return nil, err
	}

	raw, err := ParseInfo(doc, id)
	if err != nil {
		return nil, provider.Parse(u, "%v", err)
	}
	return raw, nil
}

// Probe checks that the mirror at base answers with a 2xx status.
func (c *Client) Probe(ctx context.Context, base string) error {
	_, err := provider.Get(ctx, c.session.Client(), strings.TrimRight(base, "/")+"/")
	return err
}

func (c *Client) document(ctx context.Context, u string) (*goquery.Document, error) {
	body, err := provider.Get(ctx, c.session.Client(), u)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, provider.Parse(u, "read html: %v", err)
	}
	return doc, nil
}
