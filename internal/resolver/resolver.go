// Package resolver turns a search request into canonical torrent records
// using one of two interchangeable backends: a TorrentApi aggregation
// service, or direct scraping across a pool of 1337x mirrors.
package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// ErrEmptyQuery is returned by the caller-facing boundary for a blank query.
var ErrEmptyQuery = errors.New("search query must not be empty")

// Result is the terminal outcome of one search. ProviderErrors is non-empty
// only for a partial failure; the records are still usable.
type Result struct {
	Records        []torrent.Record        `json:"records"`
	ProviderErrors []torrent.ProviderError `json:"provider_errors,omitempty"`
}

// Partial reports whether some providers failed while others answered.
func (r *Result) Partial() bool {
	return r != nil && len(r.Records) > 0 && len(r.ProviderErrors) > 0
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		Records:        append([]torrent.Record(nil), r.Records...),
		ProviderErrors: append([]torrent.ProviderError(nil), r.ProviderErrors...),
	}
}

// Details is either Found with a real record, or not found with a
// placeholder that carries only the requested identifier.
type Details struct {
	Record torrent.Record `json:"record"`
	Found  bool           `json:"found"`
}

// Found wraps a successfully resolved record.
func Found(r torrent.Record) Details {
	return Details{Record: r, Found: true}
}

// NotFound builds the placeholder outcome for id.
func NotFound(id string) Details {
	return Details{Record: torrent.Placeholder(id)}
}

// ConnectionStatus is the result of a reachability probe.
type ConnectionStatus struct {
	OK      bool
	Message string
	URL     string
}

// Status renders the probe outcome as "success" or "error".
func (s ConnectionStatus) Status() string {
	if s.OK {
		return "success"
	}
	return "error"
}

// Resolver is implemented by every backend.
type Resolver interface {
	// Name identifies the backend in logs and output.
	Name() string
	// Search returns records in upstream order. Transient per-endpoint
	// failures are handled internally; only the terminal outcome is returned.
	Search(ctx context.Context, req torrent.SearchRequest) (*Result, error)
	// Details looks up one record by identity. The error is reserved for
	// cancellation; an unresolvable id yields NotFound.
	Details(ctx context.Context, id string) (Details, error)
	// TestConnection performs a lightweight reachability probe.
	TestConnection(ctx context.Context) ConnectionStatus
}

// logger returns the request logger carried by ctx, or the global logger.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
