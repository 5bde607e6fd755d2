// Package config loads and persists the aigenflow YAML configuration.
// A missing file yields the defaults; AIGENFLOW_* environment variables
// override individual fields after the file is read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"aigenflow/internal/types"
)

// Config holds all aigenflow configuration.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Cache      CacheConfig      `yaml:"cache"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Batch      BatchConfig      `yaml:"batch"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Budget     BudgetConfig     `yaml:"budget"`
	Browser    BrowserConfig    `yaml:"browser"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PipelineConfig configures session creation.
type PipelineConfig struct {
	DocType        string `yaml:"doc_type"`
	Language       string `yaml:"language"`
	Template       string `yaml:"template"`
	OutputDir      string `yaml:"output_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Dir          string `yaml:"dir"`
	TTL          string `yaml:"ttl"`
	MaxSizeBytes int64  `yaml:"max_size_bytes"`
}

// FallbackConfig configures retries, fallback, and the circuit breakers.
type FallbackConfig struct {
	MaxRetries       int      `yaml:"max_retries"`
	MaxFallbacks     int      `yaml:"max_fallbacks"`
	ProviderOrder    []string `yaml:"provider_order"`
	BreakerThreshold int      `yaml:"breaker_threshold"`
	BreakerTimeout   string   `yaml:"breaker_timeout"`
}

// BatchConfig configures batched execution.
type BatchConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxBatchSize int  `yaml:"max_batch_size"`
}

// SummarizerConfig configures context summarization.
type SummarizerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Threshold   float64 `yaml:"threshold"`
	TargetRatio float64 `yaml:"target_ratio"`
	MaxRetries  int     `yaml:"max_retries"`
}

// BudgetConfig configures spend budgets in USD.
type BudgetConfig struct {
	DailyUSD   float64 `yaml:"daily_usd"`
	WeeklyUSD  float64 `yaml:"weekly_usd"`
	MonthlyUSD float64 `yaml:"monthly_usd"`
}

// BrowserConfig configures the browser gateways.
type BrowserConfig struct {
	DebuggerURL string `yaml:"debugger_url"`
	Headless    bool   `yaml:"headless"`
	SessionDir  string `yaml:"session_dir"`
}

// LoggingConfig configures the categorized file logger. Log files are
// written to <dir>/logs.
type LoggingConfig struct {
	Dir       string `yaml:"dir"`
	Level     string `yaml:"level"` // debug, info, warn, error
	DebugMode bool   `yaml:"debug_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".aigenflow")
	return &Config{
		Pipeline: PipelineConfig{
			DocType:        "bizplan",
			Language:       "English",
			OutputDir:      filepath.Join(base, "sessions"),
			TimeoutSeconds: 120,
		},
		Cache: CacheConfig{
			Enabled:      true,
			Dir:          filepath.Join(base, "cache"),
			TTL:          "24h",
			MaxSizeBytes: 500 * 1024 * 1024,
		},
		Fallback: FallbackConfig{
			MaxRetries:   2,
			MaxFallbacks: 3,
			ProviderOrder: []string{
				types.ProviderClaude, types.ProviderGemini,
				types.ProviderChatGPT, types.ProviderPerplexity,
			},
			BreakerThreshold: 5,
			BreakerTimeout:   "60s",
		},
		Batch: BatchConfig{
			Enabled:      true,
			MaxBatchSize: 5,
		},
		Summarizer: SummarizerConfig{
			Enabled:     true,
			Threshold:   0.8,
			TargetRatio: 0.5,
			MaxRetries:  2,
		},
		Budget: BudgetConfig{
			DailyUSD:   10,
			WeeklyUSD:  50,
			MonthlyUSD: 200,
		},
		Browser: BrowserConfig{
			Headless:   true,
			SessionDir: filepath.Join(base, "sessions-browser"),
		},
		Logging: LoggingConfig{
			Dir:   base,
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Pipeline.DocType {
	case "bizplan":
	default:
		return fmt.Errorf("unknown doc_type: %s", c.Pipeline.DocType)
	}
	if c.Fallback.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if c.Summarizer.Threshold < 0 || c.Summarizer.Threshold > 1 {
		return fmt.Errorf("summarizer threshold must be in [0,1]")
	}
	for _, p := range c.Fallback.ProviderOrder {
		switch p {
		case types.ProviderClaude, types.ProviderGemini, types.ProviderChatGPT, types.ProviderPerplexity:
		default:
			return fmt.Errorf("unknown provider in order: %s", p)
		}
	}
	return nil
}

// applyEnvOverrides applies AIGENFLOW_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AIGENFLOW_OUTPUT_DIR"); v != "" {
		c.Pipeline.OutputDir = v
	}
	if v := os.Getenv("AIGENFLOW_LANGUAGE"); v != "" {
		c.Pipeline.Language = v
	}
	if v := os.Getenv("AIGENFLOW_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("AIGENFLOW_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("AIGENFLOW_DEBUGGER_URL"); v != "" {
		c.Browser.DebuggerURL = v
	}
	if v := os.Getenv("AIGENFLOW_SESSION_DIR"); v != "" {
		c.Browser.SessionDir = v
	}
	if v := os.Getenv("AIGENFLOW_LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("AIGENFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AIGENFLOW_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("AIGENFLOW_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Fallback.MaxRetries = n
		}
	}
	if v := os.Getenv("AIGENFLOW_PROVIDER_ORDER"); v != "" {
		parts := strings.Split(v, ",")
		order := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
		if len(order) > 0 {
			c.Fallback.ProviderOrder = order
		}
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// BreakerTimeout returns the circuit-breaker timeout as a duration.
func (c *Config) BreakerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Fallback.BreakerTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
