package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Nirdla020/basescreener/internal/domain"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinRefreshSec is the enforced floor for the auto-refresh interval
	MinRefreshSec = 5
)

// Config holds the whole application configuration.
// Loaded from YAML, then overridden by environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		DexScreener struct {
			BaseURL    string `yaml:"base_url"`
			ChainID    string `yaml:"chain_id"`
			TimeoutSec int    `yaml:"timeout_sec"`
		} `yaml:"dexscreener"`
	} `yaml:"api"`

	Screener struct {
		TrendingQueries  []string `yaml:"trending_queries"`
		DiscoveryQueries []string `yaml:"discovery_queries"`
		DiscoverySize    int      `yaml:"discovery_size"`

		PoolCap    int `yaml:"pool_cap"`
		WorkingSet int `yaml:"working_set"`
		ViewLimit  int `yaml:"view_limit"`

		RefreshSec   int `yaml:"refresh_sec"`
		WatchlistMax int `yaml:"watchlist_max"`
	} `yaml:"screener"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills anything the file left empty
func applyDefaults(cfg *Config) {
	if cfg.API.DexScreener.BaseURL == "" {
		cfg.API.DexScreener.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.API.DexScreener.ChainID == "" {
		cfg.API.DexScreener.ChainID = "base"
	}
	if cfg.API.DexScreener.TimeoutSec <= 0 {
		cfg.API.DexScreener.TimeoutSec = 10
	}
	if cfg.Screener.PoolCap <= 0 {
		cfg.Screener.PoolCap = 1200
	}
	if cfg.Screener.WorkingSet <= 0 {
		cfg.Screener.WorkingSet = 400
	}
	if cfg.Screener.ViewLimit <= 0 {
		cfg.Screener.ViewLimit = 120
	}
	if cfg.Screener.RefreshSec <= 0 {
		cfg.Screener.RefreshSec = 12
	}
	if cfg.Screener.WatchlistMax <= 0 {
		cfg.Screener.WatchlistMax = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "basescreener.log"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.DexScreener.BaseURL, "http://") &&
		!strings.HasPrefix(c.API.DexScreener.BaseURL, "https://") {
		return &domain.ConfigError{Field: "api.dexscreener.base_url",
			Err: fmt.Errorf("invalid URL: %s", c.API.DexScreener.BaseURL)}
	}
	if c.API.DexScreener.ChainID == "" {
		return &domain.ConfigError{Field: "api.dexscreener.chain_id",
			Err: fmt.Errorf("chain id is required")}
	}
	if c.Screener.RefreshSec < MinRefreshSec {
		return &domain.ConfigError{Field: "screener.refresh_sec",
			Err: fmt.Errorf("refresh interval must be at least %d seconds", MinRefreshSec)}
	}
	if c.Screener.WorkingSet > c.Screener.PoolCap {
		return &domain.ConfigError{Field: "screener.working_set",
			Err: fmt.Errorf("working set (%d) cannot exceed pool cap (%d)",
				c.Screener.WorkingSet, c.Screener.PoolCap)}
	}
	return nil
}

// overrideWithEnv applies environment overrides for deploy-specific values
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("BASESCREENER_API_URL"); v != "" {
		cfg.API.DexScreener.BaseURL = v
	}
	if v := os.Getenv("BASESCREENER_CHAIN_ID"); v != "" {
		cfg.API.DexScreener.ChainID = v
	}
	if v := os.Getenv("BASESCREENER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BASESCREENER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BASESCREENER_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
}
