// Package config handles application configuration via TOML files.
// Configuration is stored at ~/.config/torrent-search/config.toml and
// selects the search backend, its endpoints and timeouts, logging, the
// result cache and the qBittorrent hand-off target.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/litescript/ls-torrent-search/internal/provider/leetx"
	"github.com/litescript/ls-torrent-search/internal/provider/torrentapi"
)

// Backend names accepted in the backend key.
const (
	BackendAggregator = "aggregator"
	BackendScrape     = "scrape"
)

// Config holds application configuration
type Config struct {
	Backend       string `toml:"backend"`
	LogLevel      string `toml:"log_level"`
	LogPath       string `toml:"log_path"`
	LogMaxSize    int    `toml:"log_max_size"`
	LogMaxBackups int    `toml:"log_max_backups"`

	Aggregator  AggregatorConfig  `toml:"aggregator"`
	Scrape      ScrapeConfig      `toml:"scrape"`
	Cache       CacheConfig       `toml:"cache"`
	QBittorrent QBittorrentConfig `toml:"qbittorrent"`
}

// AggregatorConfig holds TorrentApi service settings
type AggregatorConfig struct {
	URL          string        `toml:"url"`
	Timeout      time.Duration `toml:"timeout"`
	ProbeTimeout time.Duration `toml:"probe_timeout"`
	Providers    []string      `toml:"providers"`
	Limit        int           `toml:"limit"`
}

// ScrapeConfig holds direct-scrape settings
type ScrapeConfig struct {
	Mirrors []string `toml:"mirrors"`
	// Preferred is the mirror tried first. Empty picks a random one.
	Preferred    string        `toml:"preferred"`
	Timeout      time.Duration `toml:"timeout"`
	ProbeTimeout time.Duration `toml:"probe_timeout"`
	RetryDelay   time.Duration `toml:"retry_delay"`
	Proxy        string        `toml:"proxy"`
}

// CacheConfig holds search result caching settings
type CacheConfig struct {
	Enabled    bool          `toml:"enabled"`
	SearchTTL  time.Duration `toml:"search_ttl"`
	MaxEntries int           `toml:"max_entries"`
}

// QBittorrentConfig holds qBittorrent Web API settings
type QBittorrentConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	SavePath string `toml:"save_path"`
}

// Default returns the default configuration
func Default() Config {
	home, _ := os.UserHomeDir()

	return Config{
		Backend:       BackendAggregator,
		LogLevel:      "info",
		LogMaxSize:    50,
		LogMaxBackups: 3,
		Aggregator: AggregatorConfig{
			URL:          torrentapi.DefaultURL,
			Timeout:      torrentapi.DefaultTimeout,
			ProbeTimeout: torrentapi.DefaultProbeTimeout,
			Providers:    torrentapi.KnownProviders(),
			Limit:        100,
		},
		Scrape: ScrapeConfig{
			Mirrors:      leetx.Mirrors(),
			Timeout:      30 * time.Second,
			ProbeTimeout: 10 * time.Second,
			RetryDelay:   time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			SearchTTL:  15 * time.Minute,
			MaxEntries: 1000,
		},
		QBittorrent: QBittorrentConfig{
			Host:     "localhost",
			Port:     8080,
			Username: "admin",
			Password: "adminadmin",
			SavePath: filepath.Join(home, "Downloads", "torrents"),
		},
	}
}

// ConfigPath returns the default path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "torrent-search", "config.toml")
}

func resolvePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ConfigPath()
	}
	return path
}

// Load reads config from path, or the default path when empty. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = resolvePath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}

	return cfg, nil
}

// Save writes config to path, or the default path when empty.
func Save(cfg Config, path string) error {
	path = resolvePath(path)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	defer f.Close()

	return errors.Wrap(toml.NewEncoder(f).Encode(cfg), "encode config")
}

// Validate rejects settings no backend could run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAggregator, BackendScrape:
	default:
		return errors.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendAggregator, BackendScrape)
	}

	if err := checkURL("aggregator.url", c.Aggregator.URL); err != nil {
		return err
	}
	for _, m := range c.Scrape.Mirrors {
		if err := checkURL("scrape.mirrors", m); err != nil {
			return err
		}
	}
	if c.Backend == BackendScrape && len(c.Scrape.Mirrors) == 0 {
		return errors.New("scrape.mirrors must list at least one mirror")
	}
	if c.Scrape.Proxy != "" {
		if err := checkURL("scrape.proxy", c.Scrape.Proxy); err != nil {
			return err
		}
	}

	durations := map[string]time.Duration{
		"aggregator.timeout":       c.Aggregator.Timeout,
		"aggregator.probe_timeout": c.Aggregator.ProbeTimeout,
		"scrape.timeout":           c.Scrape.Timeout,
		"scrape.probe_timeout":     c.Scrape.ProbeTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if c.Scrape.RetryDelay < 0 {
		return errors.Errorf("scrape.retry_delay must not be negative, got %s", c.Scrape.RetryDelay)
	}
	if c.Aggregator.Limit < 0 {
		return errors.Errorf("aggregator.limit must not be negative, got %d", c.Aggregator.Limit)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	return nil
}

func checkURL(key, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("%s: %q must include scheme and host", key, raw)
	}
	return nil
}
