package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-torrent-search/internal/config"
	"github.com/litescript/ls-torrent-search/internal/resolver"
)

// newAggregator fakes the GraphQL service. Each query yields one record
// named after it; the query "slow" blocks until the client gives up and
// "lagging" answers after a short delay.
func newAggregator(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(body.Query, "__schema") {
			fmt.Fprint(w, `{"data":{"__schema":{"types":[]}}}`)
			return
		}

		q, _ := body.Variables["query"].(string)
		if q == "slow" {
			<-r.Context().Done()
			return
		}
		if q == "lagging" {
			select {
			case <-time.After(100 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"searchTorrents": map[string]any{
					"torrents": []map[string]any{{
						"added": "2024-03-04T10:15:00Z", "category": "Video", "fileCount": 1,
						"id": "id-" + q, "infoHash": "0123456789ABCDEF0123456789ABCDEF01234567",
						"leechers": 1, "name": q + " result", "seeders": 10, "size": 1536,
						"magnet": "", "provider": []string{"YTS"},
					}},
					"errors": []map[string]string{},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, aggregatorURL string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Aggregator.URL = aggregatorURL
	cfg.Cache.Enabled = false
	cfg.LogLevel = "error"
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.Save(cfg, path))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSearchCommand(t *testing.T) {
	srv, _ := newAggregator(t)
	path := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", path, "search", "one", "piece", "--category", "movies/tv")
	require.NoError(t, err)
	assert.Contains(t, out, "one piece result")
	assert.Contains(t, out, "1.50 KB")
}

func TestSearchCommand_JSON(t *testing.T) {
	srv, _ := newAggregator(t)
	path := writeConfig(t, srv.URL)

	out, _, err := execute(t, "--config", path, "search", "ubuntu", "--json")
	require.NoError(t, err)

	var res resolver.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "ubuntu result", res.Records[0].Name)
	assert.Equal(t, "YTS", res.Records[0].Provider)
}

func TestDetailsAndMagnetCommands(t *testing.T) {
	srv, _ := newAggregator(t)
	path := writeConfig(t, srv.URL)

	// The aggregator only knows records it has returned in a search, and
	// each command builds a fresh backend.
	_, _, err := execute(t, "--config", path, "details", "0123456789ABCDEF0123456789ABCDEF01234567")
	assert.ErrorContains(t, err, "not found")

	out, _, err := execute(t, "--config", path, "magnet", "magnet:?xt=urn:btih:0123456789ABCDEF0123456789ABCDEF01234567")
	require.NoError(t, err)
	assert.Equal(t, "magnet:?xt=urn:btih:0123456789ABCDEF0123456789ABCDEF01234567\n", out)

	_, _, err = execute(t, "--config", path, "magnet", "magnet:?dn=nohash")
	assert.Error(t, err)
}

func TestTestConnectionCommand(t *testing.T) {
	srv, _ := newAggregator(t)
	out, _, err := execute(t, "--config", writeConfig(t, srv.URL), "test-connection")
	require.NoError(t, err)
	assert.Contains(t, out, "success")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	out, _, err = execute(t, "--config", writeConfig(t, down.URL), "test-connection")
	assert.Error(t, err)
	assert.Contains(t, out, "error")
}

func TestBackendOverride(t *testing.T) {
	path := writeConfig(t, "http://localhost:1")
	_, _, err := execute(t, "--config", path, "--backend", "carrier-pigeon", "test-connection")
	assert.ErrorContains(t, err, "invalid --backend")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, _, err = execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestBuildService(t *testing.T) {
	cfg := config.Default()
	svc, err := buildService(cfg)
	require.NoError(t, err)
	assert.Equal(t, "aggregator", svc.Resolver().Name())
	_, cached := svc.Resolver().(*resolver.Cached)
	assert.True(t, cached)

	cfg.Backend = config.BackendScrape
	cfg.Cache.Enabled = false
	cfg.Scrape.Preferred = "https://1337x.to"
	svc, err = buildService(cfg)
	require.NoError(t, err)
	scrape, ok := svc.Resolver().(*resolver.Scrape)
	require.True(t, ok)
	assert.Equal(t, "https://1337x.to", scrape.Pool().Current())
}

func TestRetryDelay(t *testing.T) {
	assert.Negative(t, int64(retryDelay(0)))
	assert.Equal(t, 2*time.Second, retryDelay(2*time.Second))
}

func TestShell_SupersedesRunningSearch(t *testing.T) {
	srv, calls := newAggregator(t)
	cfg := config.Default()
	cfg.Aggregator.URL = srv.URL
	cfg.Cache.Enabled = false
	svc, err := buildService(cfg)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	sh := newShell(cfg, svc, &searchFlags{}, &out, &errOut)
	require.NoError(t, sh.run(t.Context(), strings.NewReader("slow\nfast\n:quit\n")))

	assert.Contains(t, out.String(), "fast result")
	assert.NotContains(t, out.String(), "slow result")
	assert.Empty(t, errOut.String(), "cancelled searches are not reported")
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestShell_ResubmittedSearchWithCache(t *testing.T) {
	srv, _ := newAggregator(t)
	cfg := config.Default()
	cfg.Aggregator.URL = srv.URL
	svc, err := buildService(cfg)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	sh := newShell(cfg, svc, &searchFlags{}, &out, &errOut)
	require.NoError(t, sh.run(t.Context(), strings.NewReader("lagging\nlagging\n:quit\n")))

	assert.Contains(t, out.String(), "lagging result")
	assert.Empty(t, errOut.String(), "the repeated query must not inherit the cancellation")
}

func TestShell_Reload(t *testing.T) {
	first, _ := newAggregator(t)
	second, secondCalls := newAggregator(t)

	cfg := config.Default()
	cfg.Aggregator.URL = first.URL
	svc, err := buildService(cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	sh := newShell(cfg, svc, &searchFlags{}, &out, &out)

	cfg.Aggregator.URL = second.URL
	sh.reload(cfg)
	require.NoError(t, sh.run(t.Context(), strings.NewReader(":help\nubuntu\n")))

	assert.Contains(t, out.String(), ":details <id>")
	assert.Contains(t, out.String(), "ubuntu result")
	assert.EqualValues(t, 1, secondCalls.Load())
}
