package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete polyreq configuration.
// Tags serve both the YAML config file and viper's unmarshalling.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// HTTPConfig configures document fetching
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS       bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// CacheConfig configures the fetched-page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	Workers              int `yaml:"workers" mapstructure:"workers"`                             // Degrees scanned in parallel by batch
	ConcentrationWorkers int `yaml:"concentration_workers" mapstructure:"concentration_workers"` // Concentration pages fetched in parallel per degree
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // json or yaml
}

// StoreConfig configures Postgres persistence
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // openai, ollama, or empty to disable
	Model       string `yaml:"model" mapstructure:"model"`
	APIKey      string `yaml:"-" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictCodes bool   `yaml:"strict_codes" mapstructure:"strict_codes"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "polyreq/0.1 (+https://github.com/ppiankov/polyreq)",
			MaxBodyBytes:      4_000_000,
			RequestsPerSecond: 2,
			Burst:             2,
			RespectRobots:     true,
			MaxRetries:        3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:              4,
			ConcentrationWorkers: 4,
		},
		Output: OutputConfig{
			Format: "json",
		},
		LLM: LLMConfig{
			Timeout:     30,
			StrictCodes: true,
			MaxTokens:   800,
		},
	}
}

// defaultCacheDir places the disk cache under the user cache dir, falling back to the working dir
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".polyreq-cache"
	}
	return filepath.Join(dir, "polyreq")
}
