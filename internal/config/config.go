package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config holds the lorekeeper configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects and configures the passage store.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, sqlite (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ContentField     string   `yaml:"content_field"`
	VectorField      string   `yaml:"vector_field"`
	IDTagField       string   `yaml:"id_tag_field"` // empty: exclusion by over-fetch
	ReturnFields     []string `yaml:"return_fields"`
	SQLitePath       string   `yaml:"sqlite_path"`
}

// EmbeddingConfig holds the question embedding provider settings.
type EmbeddingConfig struct {
	Provider         string      `yaml:"provider"`
	APIKey           string      `yaml:"api_key"`
	BaseURL          string      `yaml:"base_url"`
	Model            string      `yaml:"model"`
	Dimensions       int         `yaml:"dimensions"`
	QueryInstruction string      `yaml:"query_instruction"`
	Cache            CacheConfig `yaml:"cache"`
}

// CacheConfig controls the embedding cache in the configured database.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// GenerationConfig holds chat model settings. An empty model disables /v1/ask.
type GenerationConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float32 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// Enabled reports whether answer generation is configured.
func (g GenerationConfig) Enabled() bool { return g.Model != "" }

// RetrievalConfig holds server-side defaults for retrieval requests.
type RetrievalConfig struct {
	K                 int     `yaml:"k"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
	MaxIterations     int     `yaml:"max_iterations"`
	Filtering         *bool   `yaml:"filtering"`
}

// FilteringEnabled reports the query_must filtering default (true when unset).
func (r RetrievalConfig) FilteringEnabled() bool {
	return r.Filtering == nil || *r.Filtering
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.IndexName == "" {
		c.Database.IndexName = "lorekeeper:passages:idx"
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "lorekeeper:passage:"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/lorekeeper.db"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}

	// Generation reuses the embedding endpoint unless configured separately.
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 800
	}

	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 15
	}
	if c.Retrieval.DistanceThreshold <= 0 {
		c.Retrieval.DistanceThreshold = 0.4
	}
	if c.Retrieval.MaxIterations <= 0 {
		c.Retrieval.MaxIterations = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverSQLite, c.Database.Driver)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be non-negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Cache.TTLSec < 0 {
		return fmt.Errorf("embedding.cache.ttl_sec must be non-negative, got %d", c.Embedding.Cache.TTLSec)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", c.Generation.Temperature)
	}
	if c.Retrieval.K > 100 {
		return fmt.Errorf("retrieval.k must be at most 100, got %d", c.Retrieval.K)
	}
	if c.Retrieval.MaxIterations > 10 {
		return fmt.Errorf("retrieval.max_iterations must be at most 10, got %d", c.Retrieval.MaxIterations)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
