package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-torrent-search/internal/provider"
	"github.com/litescript/ls-torrent-search/internal/provider/torrentapi"
	"github.com/litescript/ls-torrent-search/internal/torrent"
)

type gqlTorrent map[string]any

type gqlServer struct {
	*httptest.Server
	torrents  []gqlTorrent
	errors    []map[string]string
	variables map[string]any
	calls     int
}

func newGQLServer(t *testing.T, torrents []gqlTorrent, errs []map[string]string) *gqlServer {
	t.Helper()
	g := &gqlServer{torrents: torrents, errors: errs}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.calls++
		var body struct {
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		g.variables = body.Variables

		if g.torrents == nil {
			g.torrents = []gqlTorrent{}
		}
		if g.errors == nil {
			g.errors = []map[string]string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"searchTorrents": map[string]any{
					"torrents": g.torrents,
					"errors":   g.errors,
				},
			},
		})
	}))
	t.Cleanup(g.Close)
	return g
}

func onePieceTorrents() []gqlTorrent {
	return []gqlTorrent{
		{
			"added": "2024-03-04T10:15:00Z", "category": "Video", "fileCount": 1,
			"id": "yts-1", "infoHash": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			"leechers": 5, "name": "One Piece Film Red", "seeders": 900, "size": 2254857830,
			"magnet": "magnet:?xt=urn:btih:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "provider": []string{"YTS"},
		},
		{
			"added": "2023-01-01T00:00:00Z", "category": "TV", "fileCount": 24,
			"id": "tpb-2", "infoHash": "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
			"leechers": 40, "name": "One Piece S01", "seeders": 1500, "size": 53687091200,
			"magnet": "", "provider": "PirateBay",
		},
		{
			"added": "not a date", "category": "weird", "fileCount": 0,
			"id": "bs-3", "infoHash": "", "leechers": 0, "name": "One Piece OST",
			"seeders": 10, "size": 120000000, "magnet": "", "provider": []string{"BitSearch"},
		},
	}
}

func TestService_EndToEndAggregator(t *testing.T) {
	g := newGQLServer(t, onePieceTorrents(), nil)
	svc := NewService(NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0), 100)

	res, err := svc.Search(context.Background(), Query{
		Text: "one piece", Category: "Movies/TV", SortBy: "seeders", Order: "desc",
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Empty(t, res.ProviderErrors)

	assert.Equal(t, "VIDEO", g.variables["category"])
	assert.Equal(t, "SEEDERS", g.variables["sort"])
	assert.Equal(t, "DESCENDING", g.variables["order"])

	// upstream order is kept, not re-sorted by seeders
	assert.Equal(t, []string{"One Piece Film Red", "One Piece S01", "One Piece OST"},
		[]string{res.Records[0].Name, res.Records[1].Name, res.Records[2].Name})
	for _, r := range res.Records {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Provider)
	}

	assert.Equal(t, "YTS", res.Records[0].Provider)
	assert.Equal(t, "2.10 GB", res.Records[0].SizeDisplay)
	assert.Equal(t, torrent.CategoryVideo, res.Records[1].Category)
	assert.True(t, res.Records[1].HasMagnet(), "magnet synthesized from info hash")
	assert.Equal(t, torrent.Unknown, res.Records[2].AddedDisplay)
	assert.Equal(t, torrent.CategoryOther, res.Records[2].Category)
	assert.Equal(t, "bs-3", res.Records[2].Identity())
	assert.Equal(t, 1, res.Records[2].FileCount)
}

func TestAggregator_AllProvidersFailed(t *testing.T) {
	g := newGQLServer(t, nil, []map[string]string{
		{"provider": "YTS", "error": "timeout"},
		{"provider": "PIRATEBAY", "error": "HTTP 502"},
	})
	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0)

	res, err := a.Search(context.Background(), torrent.SearchRequest{Query: "x"})
	assert.Nil(t, res)
	require.ErrorIs(t, err, provider.ErrAllProvidersFailed)

	var apf *provider.AllProvidersFailedError
	require.ErrorAs(t, err, &apf)
	assert.Len(t, apf.Errors, 2)
}

func TestAggregator_NoMatches(t *testing.T) {
	g := newGQLServer(t, nil, nil)
	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0)

	res, err := a.Search(context.Background(), torrent.SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.False(t, res.Partial())
}

func TestAggregator_PartialFailure(t *testing.T) {
	g := newGQLServer(t, onePieceTorrents()[:1], []map[string]string{{"provider": "BITSEARCH", "error": "blocked"}})
	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0)

	res, err := a.Search(context.Background(), torrent.SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.True(t, res.Partial())
	assert.Equal(t, []torrent.ProviderError{{Provider: "BITSEARCH", Message: "blocked"}}, res.ProviderErrors)
}

func TestAggregator_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: srv.URL}), 0)
	_, err := a.Search(context.Background(), torrent.SearchRequest{Query: "x"})
	assert.ErrorIs(t, err, provider.ErrUpstream)

	st := a.TestConnection(context.Background())
	assert.False(t, st.OK)
	assert.Equal(t, "Server returned status 500", st.Message)
	assert.Equal(t, srv.URL, st.URL)
}

func TestAggregator_DetailsFromSearch(t *testing.T) {
	g := newGQLServer(t, onePieceTorrents(), nil)
	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0)

	_, err := a.Search(context.Background(), torrent.SearchRequest{Query: "one piece"})
	require.NoError(t, err)
	require.Equal(t, 1, g.calls)

	d, err := a.Details(context.Background(), "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	require.NoError(t, err)
	assert.True(t, d.Found)
	assert.Equal(t, "One Piece S01", d.Record.Name)

	d, err = a.Details(context.Background(), "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)
	assert.True(t, d.Found, "hash lookup is case-insensitive")

	d, err = a.Details(context.Background(), "yts-1")
	require.NoError(t, err)
	assert.True(t, d.Found, "provider id also resolves")

	d, err = a.Details(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, d.Found)
	assert.Equal(t, "missing", d.Record.Identity())
	assert.Equal(t, 1, g.calls, "details never call the service")
}

func TestAggregator_TestConnection(t *testing.T) {
	g := newGQLServer(t, nil, nil)
	a := NewAggregator(torrentapi.New(torrentapi.Options{URL: g.URL}), 0)

	st := a.TestConnection(context.Background())
	assert.True(t, st.OK)
	assert.Equal(t, "Successfully connected to TorrentApi server", st.Message)
}
