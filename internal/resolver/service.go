package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// Query is a caller-facing search in loose vocabulary: any of the accepted
// category, sort and order spellings, or empty for the defaults.
type Query struct {
	Text      string
	Category  string
	SortBy    string
	Order     string
	Providers []string
	Limit     int
}

// Request validates q and translates it into the canonical request.
func (q Query) Request() (torrent.SearchRequest, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return torrent.SearchRequest{}, ErrEmptyQuery
	}
	return torrent.SearchRequest{
		Query:     text,
		Category:  torrent.ParseCategory(q.Category),
		Sort:      torrent.ParseSortKey(q.SortBy),
		Order:     torrent.ParseOrder(q.Order),
		Providers: q.Providers,
		Limit:     q.Limit,
	}.WithDefaults(), nil
}

// Service is the boundary consumed by the CLI. It validates input, tags each
// search with an id for log correlation and delegates to a Resolver.
type Service struct {
	resolver Resolver
	limit    int
}

// NewService returns a Service over r. defaultLimit applies when a query
// sets none.
func NewService(r Resolver, defaultLimit int) *Service {
	return &Service{resolver: r, limit: defaultLimit}
}

// Resolver returns the backend in use.
func (s *Service) Resolver() Resolver { return s.resolver }

// Search runs q. Hard failures (all providers failed, aggregation service
// unreachable) are returned as errors; no matches is an empty result.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Limit <= 0 {
		q.Limit = s.limit
	}
	req, err := q.Request()
	if err != nil {
		return nil, err
	}

	l := log.With().
		Str("search_id", uuid.NewString()).
		Str("backend", s.resolver.Name()).
		Logger()
	ctx = l.WithContext(ctx)

	start := time.Now()
	l.Debug().
		Str("query", req.Query).
		Str("category", string(req.Category)).
		Str("sort", string(req.Sort)).
		Str("order", string(req.Order)).
		Strs("providers", req.Providers).
		Int("limit", req.Limit).
		Msg("search started")

	res, err := s.resolver.Search(ctx, req)
	if err != nil {
		l.Error().Err(err).Dur("took", time.Since(start)).Msg("search failed")
		return nil, err
	}

	l.Info().
		Int("records", len(res.Records)).
		Int("provider_errors", len(res.ProviderErrors)).
		Dur("took", time.Since(start)).
		Msg("search finished")
	return res, nil
}

// Details looks up one record. A blank id is simply not found.
func (s *Service) Details(ctx context.Context, id string) (Details, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NotFound(""), nil
	}
	return s.resolver.Details(ctx, id)
}

func (s *Service) TestConnection(ctx context.Context) ConnectionStatus {
	st := s.resolver.TestConnection(ctx)
	log.Debug().Bool("ok", st.OK).Str("url", st.URL).Msg(st.Message)
	return st
}
