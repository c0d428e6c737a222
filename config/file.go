package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pevans/matchfed/scraper"
	"gopkg.in/yaml.v3"
)

// HTTPConfig is the http section of the config file.
type HTTPConfig struct {
	Timeout     string `yaml:"timeout"`
	UserAgent   string `yaml:"user_agent"`
	Encoding    string `yaml:"encoding"`
	Retries     *int   `yaml:"retries"`
	MaxBodySize int64  `yaml:"max_body_size"`
}

// FileConfig represents the structure of config.yaml. Every field is
// optional.
type FileConfig struct {
	IndexURL    string            `yaml:"index_url"`
	Format      string            `yaml:"format"`
	Marker      string            `yaml:"marker"`
	AssetDir    string            `yaml:"asset_dir"`
	HistoryDSN  string            `yaml:"history_dsn"`
	Listen      string            `yaml:"listen"`
	Concurrency int               `yaml:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http"`
	Selectors   scraper.Selectors `yaml:"selectors"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/matchfed/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadConfigFile loads configuration from path. Returns nil if the file
// doesn't exist (not an error). Returns error if the file exists but cannot
// be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
