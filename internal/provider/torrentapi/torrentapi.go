// Package torrentapi talks to a TorrentApi aggregation service over GraphQL.
// The service fans a query out to several providers and answers with the
// combined torrents plus a per-provider error list.
package torrentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/litescript/ls-torrent-search/internal/provider"
	"github.com/litescript/ls-torrent-search/internal/torrent"
)

const (
	DefaultURL          = "http://localhost:8000"
	DefaultTimeout      = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

const searchQuery = `query SearchTorrents($query: String!, $category: Category!, $sort: SortColumn!, $order: Order!, $limit: Int!, $providers: [Provider!]!) {
  searchTorrents(params: {query: $query, category: $category, sort: $sort, order: $order, limit: $limit, providers: $providers}) {
    torrents {
      added
      category
      fileCount
      id
      infoHash
      leechers
      name
      seeders
      size
      magnet
      provider
    }
    errors {
      provider
      error
    }
  }
}`

const probeQuery = `query { __schema { types { name } } }`

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	URL          string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
}

// Client is a GraphQL client for one aggregation service.
type Client struct {
	baseURL      string
	endpoint     string
	probeTimeout time.Duration
	httpClient   *http.Client
}

// New returns a client for the service at opts.URL.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		base = DefaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	probe := opts.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      base,
		endpoint:     base + "/graphql",
		probeTimeout: probe,
		httpClient:   hc,
	}
}

// BaseURL returns the service address without the /graphql suffix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is one search answer: the combined torrents, in service order,
// and the providers that failed.
type Response struct {
	Torrents []torrent.Raw
	Errors   []torrent.ProviderError
}

// QueryError carries GraphQL-level errors; the query itself was rejected.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "graphql errors: " + strings.Join(e.Messages, "; ")
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type searchEnvelope struct {
	Data *struct {
		SearchTorrents *struct {
			Torrents []torrent.Raw `json:"torrents"`
			Errors   []struct {
				Provider string `json:"provider"`
				Error    string `json:"error"`
			} `json:"errors"`
		} `json:"searchTorrents"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// Search issues a single query carrying the full filter set.
func (c *Client) Search(ctx context.Context, req torrent.SearchRequest) (*Response, error) {
	req = req.WithDefaults()
	vars := Variables(req)

	var env searchEnvelope
	if err := c.do(ctx, gqlRequest{Query: searchQuery, Variables: vars}, &env); err != nil {
		return nil, err
	}
	if len(env.Errors) > 0 {
		return nil, queryError(env.Errors)
	}

	resp := &Response{}
	if env.Data == nil || env.Data.SearchTorrents == nil {
		return resp, nil
	}
	resp.Torrents = env.Data.SearchTorrents.Torrents
	for _, e := range env.Data.SearchTorrents.Errors {
		pe := torrent.ProviderError{Provider: e.Provider, Message: e.Error}
		if pe.Provider == "" {
			pe.Provider = torrent.Unknown
		}
		if pe.Message == "" {
			pe.Message = "Unknown error"
		}
		resp.Errors = append(resp.Errors, pe)
	}
	return resp, nil
}

// Probe sends a schema introspection query with the short probe timeout.
// Any 2xx answer counts as reachable.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	return c.do(ctx, gqlRequest{Query: probeQuery}, nil)
}

func (c *Client) do(ctx context.Context, body gqlRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Transport(c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return provider.Upstream(c.endpoint, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return provider.Parse(c.endpoint, "invalid json response: %v", err)
	}
	return nil
}

func queryError(errs []gqlError) *QueryError {
	qe := &QueryError{}
	for _, e := range errs {
		qe.Messages = append(qe.Messages, e.Message)
	}
	return qe
}
