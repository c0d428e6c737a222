// Package config resolves matchfed's settings from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pevans/matchfed/fetch"
	"github.com/pevans/matchfed/newsindex"
	"github.com/pevans/matchfed/scraper"
)

const (
	AppName            = "matchfed"
	DefaultIndexURL    = "https://m.dongqiudi.com/home/104"
	DefaultListen      = "localhost:8080"
	DefaultConcurrency = 4
)

// Environment overrides.
const (
	EnvIndexURL   = "MATCHFED_INDEX_URL"
	EnvAssetDir   = "MATCHFED_ASSET_DIR"
	EnvHistoryDSN = "MATCHFED_HISTORY_DSN"
	EnvListen     = "MATCHFED_LISTEN"
)

// Config is the resolved configuration.
type Config struct {
	IndexURL    string
	Format      string
	AssetDir    string
	HistoryDSN  string
	Listen      string
	Concurrency int
	Fetch       *fetch.Config
	Selectors   scraper.Selectors
}

// DataDir returns $XDG_DATA_HOME/matchfed.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// CacheDir returns $XDG_CACHE_HOME/matchfed.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		IndexURL:    DefaultIndexURL,
		Format:      newsindex.FormatHTML,
		AssetDir:    filepath.Join(CacheDir(), "gifs"),
		HistoryDSN:  filepath.Join(DataDir(), "history.db"),
		Listen:      DefaultListen,
		Concurrency: DefaultConcurrency,
		Fetch:       fetch.DefaultConfig(),
		Selectors:   scraper.DefaultSelectors(),
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// if absent) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := cfg.apply(file); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply overlays the non-empty fields of a config file.
func (c *Config) apply(f *FileConfig) error {
	if f.IndexURL != "" {
		c.IndexURL = f.IndexURL
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.AssetDir != "" {
		c.AssetDir = f.AssetDir
	}
	if f.HistoryDSN != "" {
		c.HistoryDSN = f.HistoryDSN
	}
	if f.Listen != "" {
		c.Listen = f.Listen
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}

	c.Selectors = f.Selectors.Merge()
	if f.Marker != "" {
		c.Selectors.Marker = f.Marker
	}

	if f.HTTP.Timeout != "" {
		d, err := time.ParseDuration(f.HTTP.Timeout)
		if err != nil {
			return fmt.Errorf("invalid http.timeout: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if f.HTTP.UserAgent != "" {
		c.Fetch.UserAgent = f.HTTP.UserAgent
	}
	if f.HTTP.Encoding != "" {
		c.Fetch.Encoding = f.HTTP.Encoding
	}
	if f.HTTP.Retries != nil {
		c.Fetch.Retries = *f.HTTP.Retries
	}
	if f.HTTP.MaxBodySize != 0 {
		c.Fetch.MaxBodySize = f.HTTP.MaxBodySize
	}
	return nil
}

func (c *Config) applyEnv() {
	c.IndexURL = getEnv(EnvIndexURL, c.IndexURL)
	c.AssetDir = getEnv(EnvAssetDir, c.AssetDir)
	c.HistoryDSN = getEnv(EnvHistoryDSN, c.HistoryDSN)
	c.Listen = getEnv(EnvListen, c.Listen)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.IndexURL)
	if err != nil {
		return fmt.Errorf("invalid index_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("index_url must use http or https scheme")
	}
	if c.Format != newsindex.FormatHTML && c.Format != newsindex.FormatFeed {
		return fmt.Errorf("format must be %q or %q, got %q", newsindex.FormatHTML, newsindex.FormatFeed, c.Format)
	}
	if c.AssetDir == "" {
		return errors.New("asset_dir is required")
	}
	if c.HistoryDSN == "" {
		return errors.New("history_dsn is required")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Fetch.Retries < 0 {
		return errors.New("http.retries must not be negative")
	}
	if c.Fetch.MaxBodySize < 0 {
		return errors.New("http.max_body_size must not be negative")
	}
	if c.Selectors.Marker == "" {
		return errors.New("marker must not be empty")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
