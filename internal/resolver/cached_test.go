package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

type fakeResolver struct {
	calls     atomic.Int32
	cancelled atomic.Bool
	records   []torrent.Record
	partial   []torrent.ProviderError
	err       error
	gate      chan struct{}
}

func (f *fakeResolver) Name() string { return "fake" }

func (f *fakeResolver) Search(ctx context.Context, req torrent.SearchRequest) (*Result, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			f.cancelled.Store(true)
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Records: f.records, ProviderErrors: f.partial}, nil
}

func (f *fakeResolver) Details(ctx context.Context, id string) (Details, error) {
	return NotFound(id), nil
}

func (f *fakeResolver) TestConnection(ctx context.Context) ConnectionStatus {
	return ConnectionStatus{OK: true, Message: "fake"}
}

func TestCached_HitAfterSuccess(t *testing.T) {
	f := &fakeResolver{records: []torrent.Record{{Name: "a"}, {Name: "b"}}}
	c := NewCached(f, time.Minute, 0)
	req := torrent.SearchRequest{Query: "ubuntu"}

	first, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	first.Records[0].Name = "mutated"

	second, err := c.Search(context.Background(), req)
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, "a", second.Records[0].Name, "cached result is isolated from callers")
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Entries: 1}, c.Stats())
}

func TestCached_EmptyAndFailedResultsAreNotStored(t *testing.T) {
	f := &fakeResolver{}
	c := NewCached(f, time.Minute, 0)
	req := torrent.SearchRequest{Query: "nothing"}

	for i := 0; i < 2; i++ {
		res, err := c.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, res.Records)
	}
	assert.EqualValues(t, 2, f.calls.Load())

	f.err = errors.New("boom")
	_, err := c.Search(context.Background(), req)
	assert.EqualError(t, err, "boom")
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestCached_CollapsesConcurrentSearches(t *testing.T) {
	f := &fakeResolver{records: []torrent.Record{{Name: "a"}}, gate: make(chan struct{})}
	c := NewCached(f, time.Minute, 0)
	req := torrent.SearchRequest{Query: "debian"}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Search(context.Background(), req)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// let the other callers join the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, res := range results {
		require.NotNil(t, res)
		assert.Len(t, res.Records, 1)
	}
	assert.EqualValues(t, callers, c.Stats().Misses)
	assert.EqualValues(t, callers, c.Stats().Shared)
}

func TestCached_CancelledCallerDoesNotFailJoiners(t *testing.T) {
	f := &fakeResolver{records: []torrent.Record{{Name: "a"}}, gate: make(chan struct{})}
	c := NewCached(f, time.Minute, 0)
	req := torrent.SearchRequest{Query: "arch"}

	ownerCtx, cancel := context.WithCancel(context.Background())
	ownerErr := make(chan error, 1)
	go func() {
		_, err := c.Search(ownerCtx, req)
		ownerErr <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		res *Result
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		res, err := c.Search(context.Background(), req)
		joined <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-ownerErr, context.Canceled)

	close(f.gate)
	got := <-joined
	require.NoError(t, got.err)
	assert.Len(t, got.res.Records, 1)
	assert.False(t, f.cancelled.Load(), "upstream keeps running while a caller waits")
	assert.EqualValues(t, 1, f.calls.Load())

	_, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.calls.Load(), "joined result was stored")
}

func TestCached_LastCallerLeavingCancelsUpstream(t *testing.T) {
	f := &fakeResolver{records: []torrent.Record{{Name: "a"}}, gate: make(chan struct{})}
	c := NewCached(f, time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Search(ctx, torrent.SearchRequest{Query: "gentoo"})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Eventually(t, f.cancelled.Load, time.Second, 5*time.Millisecond)
}

func TestCached_PartialResultsAreNotStored(t *testing.T) {
	f := &fakeResolver{
		records: []torrent.Record{{Name: "a"}},
		partial: []torrent.ProviderError{{Provider: "YTS", Message: "timeout"}},
	}
	c := NewCached(f, time.Minute, 0)
	req := torrent.SearchRequest{Query: "fedora"}

	for i := 0; i < 2; i++ {
		res, err := c.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, res.Records, 1)
		assert.Len(t, res.ProviderErrors, 1)
	}
	assert.EqualValues(t, 2, f.calls.Load())
	assert.Zero(t, c.Stats().Entries)
}

func TestCached_EvictsOldestWhenFull(t *testing.T) {
	f := &fakeResolver{records: []torrent.Record{{Name: "a"}}}
	c := NewCached(f, time.Minute, 4)
	search := func(q string) {
		t.Helper()
		_, err := c.Search(context.Background(), torrent.SearchRequest{Query: q})
		require.NoError(t, err)
	}

	for _, q := range []string{"q0", "q1", "q2", "q3", "q4"} {
		search(q)
	}
	assert.EqualValues(t, 5, f.calls.Load())
	assert.Equal(t, 4, c.Stats().Entries)

	search("q1")
	assert.EqualValues(t, 5, f.calls.Load(), "q1 survived the eviction")

	search("q0")
	assert.EqualValues(t, 6, f.calls.Load(), "q0 was the oldest entry")
	assert.Equal(t, 4, c.Stats().Entries)
}

func TestCached_PassThrough(t *testing.T) {
	c := NewCached(&fakeResolver{}, 0, 0)
	assert.Equal(t, "fake", c.Name())

	d, err := c.Details(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, d.Found)
	assert.True(t, c.TestConnection(context.Background()).OK)
}

func TestCacheKey(t *testing.T) {
	base := torrent.SearchRequest{Query: "One Piece", Providers: []string{"YTS", "PirateBay"}}

	assert.Equal(t, CacheKey(base), CacheKey(torrent.SearchRequest{
		Query: " one piece ", Providers: []string{"piratebay", "yts"},
		Category: torrent.CategoryAll, Sort: torrent.SortSeeders, Order: torrent.Descending, Limit: 100,
	}), "defaults, case and provider order do not change the key")

	variants := []torrent.SearchRequest{
		{Query: "one piece film"},
		{Query: "One Piece", Category: torrent.CategoryVideo},
		{Query: "One Piece", Sort: torrent.SortSize},
		{Query: "One Piece", Order: torrent.Ascending},
		{Query: "One Piece", Providers: []string{"YTS"}},
		{Query: "One Piece", Limit: 10},
	}
	seen := map[string]bool{CacheKey(base): true}
	for _, v := range variants {
		k := CacheKey(v)
		assert.False(t, seen[k], "%+v collides", v)
		seen[k] = true
	}
}
