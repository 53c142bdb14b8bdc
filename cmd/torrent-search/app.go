package main

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/litescript/ls-torrent-search/internal/config"
	"github.com/litescript/ls-torrent-search/internal/httpx"
	"github.com/litescript/ls-torrent-search/internal/output"
	"github.com/litescript/ls-torrent-search/internal/provider/leetx"
	"github.com/litescript/ls-torrent-search/internal/provider/torrentapi"
	"github.com/litescript/ls-torrent-search/internal/resolver"
)

// loadConfig reads the config file, applies flag overrides and configures
// logging.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
		if err := cfg.Validate(); err != nil {
			return cfg, errors.Wrap(err, "invalid --backend")
		}
	}
	config.ApplyLogConfig(cfg, flags.verbose)
	return cfg, nil
}

// buildService wires the configured backend, optionally behind the search
// cache.
func buildService(cfg config.Config) (*resolver.Service, error) {
	var (
		r     resolver.Resolver
		limit int
	)

	switch cfg.Backend {
	case config.BackendScrape:
		session, err := httpx.NewSession(httpx.Options{
			Timeout:  cfg.Scrape.Timeout,
			ProxyURL: cfg.Scrape.Proxy,
		})
		if err != nil {
			return nil, errors.Wrap(err, "scrape session")
		}
		pool, err := resolver.NewMirrorPool(cfg.Scrape.Mirrors, cfg.Scrape.Preferred)
		if err != nil {
			return nil, errors.Wrap(err, "mirror pool")
		}
		r = resolver.NewScrape(pool, leetx.NewClient(session), resolver.ScrapeOptions{
			RetryDelay:   retryDelay(cfg.Scrape.RetryDelay),
			ProbeTimeout: cfg.Scrape.ProbeTimeout,
		})
		log.Debug().Str("mirror", pool.Current()).Int("mirrors", pool.Size()).Msg("using scrape backend")

	default:
		client := torrentapi.New(torrentapi.Options{
			URL:          cfg.Aggregator.URL,
			Timeout:      cfg.Aggregator.Timeout,
			ProbeTimeout: cfg.Aggregator.ProbeTimeout,
		})
		r = resolver.NewAggregator(client, resolver.DefaultDetailTTL)
		limit = cfg.Aggregator.Limit
		log.Debug().Str("url", client.BaseURL()).Msg("using aggregator backend")
	}

	if cfg.Cache.Enabled {
		r = resolver.NewCached(r, cfg.Cache.SearchTTL, cfg.Cache.MaxEntries)
	}
	return resolver.NewService(r, limit), nil
}

// retryDelay maps the config convention (0 means no pause) onto
// ScrapeOptions (0 means the default, negative means no pause).
func retryDelay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// defaultProviders is used when no --providers flag is given.
func defaultProviders(cfg config.Config) []string {
	if cfg.Backend == config.BackendScrape {
		return nil
	}
	return cfg.Aggregator.Providers
}

// newPrinter styles output for w, following the terminal theme only when w
// is a terminal.
func newPrinter(w io.Writer) *output.Printer {
	palette := output.DefaultPalette()
	width := 0
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		home, _ := os.UserHomeDir()
		palette = output.DetectPalette(home, os.Getenv)
		width, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	return output.NewPrinter(w, output.NewStyles(palette), width)
}
