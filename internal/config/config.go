package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SymbolGroup names an independently fetched set of symbols.
type SymbolGroup struct {
	Name    string   `mapstructure:"name"`
	Symbols []string `mapstructure:"symbols"`
}

// RetryConfig tunes the retry policy applied to upstream calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxJitter   time.Duration `mapstructure:"max_jitter"`
}

// Config holds all configuration for the market fetcher application.
type Config struct {
	// FRED API key; macro series features are skipped when empty
	FredAPIKey string `mapstructure:"fred_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	YahooBaseURL string `mapstructure:"yahoo_base_url"`
	FredBaseURL  string `mapstructure:"fred_base_url"`

	// Symbol groups to fetch
	SymbolGroups []SymbolGroup `mapstructure:"symbol_groups"`

	// Retry policy
	Retry RetryConfig `mapstructure:"retry"`
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - FRED_API_KEY (optional, macro series are skipped without it)
//   - YAHOO_BASE_URL (optional, defaults to production)
//   - FRED_BASE_URL (optional, defaults to production)
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("fred_base_url", "https://api.stlouisfed.org")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.max_jitter", "500ms")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.marketfetcher")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables
	v.BindEnv("fred_api_key", "FRED_API_KEY")
	v.BindEnv("yahoo_base_url", "YAHOO_BASE_URL")
	v.BindEnv("fred_base_url", "FRED_BASE_URL")

	// Unmarshal config into struct (handles both simple and complex fields)
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fall back to the standard premarket groups when the config file
	// defines none
	if len(config.SymbolGroups) == 0 {
		config.SymbolGroups = defaultSymbolGroups()
	}

	// Validate
	if config.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry.max_attempts must be at least 1, got %d", config.Retry.MaxAttempts)
	}
	for _, group := range config.SymbolGroups {
		if group.Name == "" {
			return nil, fmt.Errorf("symbol group without a name")
		}
		if len(group.Symbols) == 0 {
			return nil, fmt.Errorf("symbol group %q has no symbols", group.Name)
		}
	}

	return config, nil
}

// defaultSymbolGroups covers the usual premarket dashboard: equity futures,
// metals, treasuries and volatility.
func defaultSymbolGroups() []SymbolGroup {
	return []SymbolGroup{
		{Name: "equities", Symbols: []string{"ES=F", "NQ=F", "YM=F", "RTY=F"}},
		{Name: "metals", Symbols: []string{"GC=F", "SI=F", "PL=F", "HG=F"}},
		{Name: "treasuries", Symbols: []string{"ZN=F", "ZT=F", "TLT", "IEF"}},
		{Name: "volatility", Symbols: []string{"^VIX", "VIXY", "SVXY"}},
	}
}
