package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/litescript/ls-torrent-search/internal/mirror"
	"github.com/litescript/ls-torrent-search/internal/provider"
	"github.com/litescript/ls-torrent-search/internal/provider/leetx"
	"github.com/litescript/ls-torrent-search/internal/torrent"
)

const DefaultRetryDelay = time.Second

// errEmptyListing makes an empty page from one mirror count as a failed
// attempt, so the next mirror gets a chance.
var errEmptyListing = errors.New("empty listing")

// ScrapeOptions tunes the scrape backend.
type ScrapeOptions struct {
	// RetryDelay is the flat pause between attempts. Negative disables it.
	RetryDelay   time.Duration
	ProbeTimeout time.Duration
}

// Scrape resolves against a pool of mirrors of one site. Each call makes at
// most one attempt per mirror, rotating on every failure.
type Scrape struct {
	pool         *mirror.Pool
	client       *leetx.Client
	delay        time.Duration
	probeTimeout time.Duration
}

// NewScrape wires client to pool. Leaving a mirror resets the client's
// session so cookies and challenge state never carry over.
func NewScrape(pool *mirror.Pool, client *leetx.Client, opts ScrapeOptions) *Scrape {
	delay := opts.RetryDelay
	switch {
	case delay == 0:
		delay = DefaultRetryDelay
	case delay < 0:
		delay = 0
	}
	probe := opts.ProbeTimeout
	if probe <= 0 {
		probe = 10 * time.Second
	}

	pool.OnAdvance(func(from, to string) {
		client.Session().Reset()
	})

	return &Scrape{
		pool:         pool,
		client:       client,
		delay:        delay,
		probeTimeout: probe,
	}
}

// NewMirrorPool builds the rotation pool. Without a preferred mirror the
// starting position is random so load spreads across mirrors.
func NewMirrorPool(mirrors []string, preferred string) (*mirror.Pool, error) {
	if preferred == "" && len(mirrors) > 0 {
		preferred = mirrors[rand.IntN(len(mirrors))]
	}
	return mirror.New(mirrors, preferred)
}

func (s *Scrape) Name() string { return "scrape" }

// Pool exposes the rotation pool.
func (s *Scrape) Pool() *mirror.Pool { return s.pool }

func (s *Scrape) Search(ctx context.Context, req torrent.SearchRequest) (*Result, error) {
	req = req.WithDefaults()

	records, err := attempt(ctx, s, "search", func(base string) ([]torrent.Record, error) {
		raws, err := s.client.Search(ctx, base, req)
		if err != nil {
			return nil, err
		}
		if len(raws) == 0 {
			return nil, errEmptyListing
		}
		return torrent.NormalizeAll(raws), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger(ctx).Warn().
			Int("attempts", s.pool.Size()).
			Str("query", req.Query).
			Msg("no mirror returned search results")
		return &Result{}, nil
	}
	return &Result{Records: records}, nil
}

func (s *Scrape) Details(ctx context.Context, id string) (Details, error) {
	rec, err := attempt(ctx, s, "details", func(base string) (torrent.Record, error) {
		raw, err := s.client.Info(ctx, base, id)
		if err != nil {
			return torrent.Record{}, err
		}
		return torrent.Normalize(raw), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Details{}, ctx.Err()
		}
		logger(ctx).Warn().
			Int("attempts", s.pool.Size()).
			Str("id", id).
			Msg("no mirror returned torrent details")
		return NotFound(id), nil
	}
	return Found(rec), nil
}

// TestConnection probes the current mirror without rotating.
func (s *Scrape) TestConnection(ctx context.Context) ConnectionStatus {
	base := s.pool.Current()
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	if err := s.client.Probe(ctx, base); err != nil {
		return ConnectionStatus{URL: base, Message: probeMessage(err)}
	}
	return ConnectionStatus{OK: true, URL: base, Message: "Successfully connected to " + base}
}

// attempt runs fn once per mirror, advancing the pool after every failure,
// including the last, with a flat delay in between.
func attempt[T any](ctx context.Context, s *Scrape, op string, fn func(base string) (T, error)) (T, error) {
	n := 0
	return retry.DoWithData(
		func() (T, error) {
			n++
			base := s.pool.Current()
			v, err := fn(base)
			if err == nil {
				return v, nil
			}
			if ctx.Err() != nil {
				return v, retry.Unrecoverable(ctx.Err())
			}

			next := s.pool.AdvanceFrom(base)
			ev := logger(ctx).Debug()
			if errors.Is(err, errEmptyListing) {
				ev = logger(ctx).Info()
			}
			ev.Str("op", op).
				Int("attempt", n).
				Str("endpoint", base).
				Str("next", next).
				Str("kind", failureKind(err)).
				Err(err).
				Msg("mirror attempt failed, rotating")
			return v, err
		},
		retry.Attempts(uint(s.pool.Size())),
		retry.Delay(s.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func failureKind(err error) string {
	if errors.Is(err, errEmptyListing) {
		return "empty"
	}
	if k := provider.KindOf(err); k != 0 {
		return k.String()
	}
	return "other"
}

func probeMessage(err error) string {
	var fe *provider.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case provider.UpstreamFailure:
			return fmt.Sprintf("Server returned status %d", fe.StatusCode)
		case provider.TransportFailure:
			if errors.Is(err, context.DeadlineExceeded) {
				return "Connection timeout - server may be down or unreachable"
			}
			return fmt.Sprintf("Connection error: %v", fe.Err)
		}
	}
	return fmt.Sprintf("Unexpected error: %v", err)
}
