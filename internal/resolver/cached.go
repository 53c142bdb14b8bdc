package resolver

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"golang.org/x/sync/singleflight"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

const (
	DefaultSearchTTL  = 15 * time.Minute
	DefaultMaxEntries = 1000
)

// CacheStats counts cache traffic since construction.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Shared  int64 // callers served by another caller's in-flight search
	Entries int
}

// Cached wraps a Resolver with a search result cache. Identical concurrent
// searches collapse into one upstream call. Only complete, non-empty results
// are stored, and at most maxEntries of them; the oldest quarter is evicted
// when the cap is hit. Details and TestConnection pass through.
type Cached struct {
	next       Resolver
	cache      *ttlcache.Cache[string, *Result]
	maxEntries int

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight

	indexMu sync.Mutex
	stored  map[string]uint64 // key -> insertion sequence
	seq     uint64

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// flight is the context of one shared upstream search. It is cancelled once
// every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewCached decorates next. A non-positive ttl takes DefaultSearchTTL and a
// non-positive maxEntries takes DefaultMaxEntries.
func NewCached(next Resolver, ttl time.Duration, maxEntries int) *Cached {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cached{
		next:       next,
		maxEntries: maxEntries,
		flights:    make(map[string]*flight),
		stored:     make(map[string]uint64),
	}
	c.cache = ttlcache.New(ttlcache.Options[string, *Result]{}.
		SetDefaultTTL(ttl).
		DisableUpdateTime(true).
		SetDeallocationFunc(c.expired))
	return c
}

func (c *Cached) Name() string { return c.next.Name() }

// Unwrap returns the decorated resolver.
func (c *Cached) Unwrap() Resolver { return c.next }

func (c *Cached) Search(ctx context.Context, req torrent.SearchRequest) (*Result, error) {
	req = req.WithDefaults()
	key := CacheKey(req)

	if res, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		logger(ctx).Debug().Str("key", key[:12]).Msg("search cache hit")
		return res.clone(), nil
	}
	c.misses.Add(1)

	f, ch := c.join(ctx, key, req)
	defer c.leave(key, f)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			c.shared.Add(1)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Result).clone(), nil
	}
}

// join attaches the caller to the in-flight search for key, starting one if
// none is running. The upstream call only sees cancellation once all callers
// have left, so one caller giving up never fails the others.
func (c *Cached) join(ctx context.Context, key string, req torrent.SearchRequest) (*flight, <-chan singleflight.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	ch := c.group.DoChan(key, func() (any, error) {
		res, err := c.next.Search(f.ctx, req)
		if err != nil {
			return nil, err
		}
		if len(res.Records) > 0 && len(res.ProviderErrors) == 0 {
			c.store(key, res)
		}
		return res, nil
	})
	return f, ch
}

func (c *Cached) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		// The abandoned call may still be finishing; later callers start afresh.
		c.group.Forget(key)
	}
}

func (c *Cached) store(key string, res *Result) {
	var evict []string

	c.indexMu.Lock()
	if _, ok := c.stored[key]; !ok && len(c.stored) >= c.maxEntries {
		evict = c.oldestLocked(max(c.maxEntries/4, 1))
		for _, k := range evict {
			delete(c.stored, k)
		}
	}
	c.seq++
	c.stored[key] = c.seq
	c.indexMu.Unlock()

	for _, k := range evict {
		c.cache.Delete(k)
	}
	c.cache.Set(key, res, ttlcache.DefaultTTL)
}

func (c *Cached) oldestLocked(n int) []string {
	keys := make([]string, 0, len(c.stored))
	for k := range c.stored {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Compare(c.stored[a], c.stored[b])
	})
	if n > len(keys) {
		n = len(keys)
	}
	return keys[:n]
}

// expired runs under the cache lock and must not call back into the cache.
func (c *Cached) expired(key string, _ *Result, reason ttlcache.DeallocationReason) {
	if reason != ttlcache.ReasonTimedOut {
		return
	}
	c.indexMu.Lock()
	delete(c.stored, key)
	c.indexMu.Unlock()
}

func (c *Cached) Details(ctx context.Context, id string) (Details, error) {
	return c.next.Details(ctx, id)
}

func (c *Cached) TestConnection(ctx context.Context) ConnectionStatus {
	return c.next.TestConnection(ctx)
}

// Stats returns a snapshot of the counters.
func (c *Cached) Stats() CacheStats {
	c.indexMu.Lock()
	entries := len(c.stored)
	c.indexMu.Unlock()

	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Shared:  c.shared.Load(),
		Entries: entries,
	}
}

// CacheKey derives a stable key from every field that shapes the upstream
// answer. Provider order does not matter.
func CacheKey(req torrent.SearchRequest) string {
	req = req.WithDefaults()

	providers := make([]string, 0, len(req.Providers))
	for _, p := range req.Providers {
		providers = append(providers, strings.ToLower(strings.TrimSpace(p)))
	}
	slices.Sort(providers)

	h := sha256.New()
	for _, part := range []string{
		strings.ToLower(strings.TrimSpace(req.Query)),
		string(req.Category),
		string(req.Sort),
		string(req.Order),
		strings.Join(providers, ","),
		strconv.Itoa(req.Limit),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
