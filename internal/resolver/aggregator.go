package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"

	"github.com/litescript/ls-torrent-search/internal/provider"
	"github.com/litescript/ls-torrent-search/internal/provider/torrentapi"
	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// DefaultDetailTTL bounds how long records from a search stay available for
// detail lookups.
const DefaultDetailTTL = time.Hour

// Aggregator resolves through a TorrentApi service. The service returns full
// records with every search, so details are served from what earlier
// searches returned.
type Aggregator struct {
	client  *torrentapi.Client
	records *ttlcache.Cache[string, torrent.Record]
}

// NewAggregator returns an aggregator backend. A non-positive detailTTL takes
// DefaultDetailTTL.
func NewAggregator(client *torrentapi.Client, detailTTL time.Duration) *Aggregator {
	if detailTTL <= 0 {
		detailTTL = DefaultDetailTTL
	}
	return &Aggregator{
		client:  client,
		records: ttlcache.New(ttlcache.Options[string, torrent.Record]{}.SetDefaultTTL(detailTTL)),
	}
}

func (a *Aggregator) Name() string { return "aggregator" }

func (a *Aggregator) Search(ctx context.Context, req torrent.SearchRequest) (*Result, error) {
	req = req.WithDefaults()

	resp, err := a.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	records := torrent.NormalizeAll(resp.Torrents)
	for _, r := range records {
		a.remember(r)
	}

	switch {
	case len(records) == 0 && len(resp.Errors) > 0:
		return nil, &provider.AllProvidersFailedError{Errors: resp.Errors}
	case len(resp.Errors) > 0:
		logger(ctx).Warn().
			Int("records", len(records)).
			Str("providers", joinProviders(resp.Errors)).
			Msg("some providers failed")
		for _, pe := range resp.Errors {
			logger(ctx).Debug().Str("provider", pe.Provider).Msg(pe.Message)
		}
	}

	return &Result{Records: records, ProviderErrors: resp.Errors}, nil
}

// Details is a cache read; it never calls the service.
func (a *Aggregator) Details(ctx context.Context, id string) (Details, error) {
	if err := ctx.Err(); err != nil {
		return Details{}, err
	}
	if r, ok := a.records.Get(id); ok {
		return Found(r), nil
	}
	if r, ok := a.records.Get(strings.ToUpper(id)); ok {
		return Found(r), nil
	}
	return NotFound(id), nil
}

func (a *Aggregator) TestConnection(ctx context.Context) ConnectionStatus {
	base := a.client.BaseURL()
	if err := a.client.Probe(ctx); err != nil {
		return ConnectionStatus{URL: base, Message: probeMessage(err)}
	}
	return ConnectionStatus{OK: true, URL: base, Message: "Successfully connected to TorrentApi server"}
}

// remember indexes r by identity and by its provider id.
func (a *Aggregator) remember(r torrent.Record) {
	for _, key := range []string{r.InfoHash, strings.ToUpper(r.InfoHash), r.ID} {
		if key != "" {
			a.records.Set(key, r, ttlcache.DefaultTTL)
		}
	}
}

func joinProviders(errs []torrent.ProviderError) string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Provider)
	}
	return strings.Join(names, ",")
}
