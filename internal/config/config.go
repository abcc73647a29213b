package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/email-priority/")
	v.AddConfigPath("$HOME/.email-priority")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PRIORITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Sentiment collaborator defaults
	v.SetDefault("sentiment.provider", "none")
	v.SetDefault("sentiment.timeout", "5s")

	// Groq defaults (OpenAI-compatible endpoint)
	v.SetDefault("groq.api_key", "")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model_name", "llama-3.3-70b-versatile")
	v.SetDefault("groq.max_tokens", 400)
	v.SetDefault("groq.temperature", 0.1)
	v.SetDefault("groq.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 400)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.max_body_size", 4096)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 400)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Calendar collaborator defaults
	v.SetDefault("calendar.endpoint", "")
	v.SetDefault("calendar.timeout", "5s")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/priority.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/email_priority")

	// Score cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_frequency", "10m")

	// Scoring defaults
	v.SetDefault("scoring.batch_workers", 4)
	v.SetDefault("scoring.terse_breakdown", false)

	// Contact seed entries, "identity=level" pairs
	v.SetDefault("contacts.seed", []string{})

	// Server defaults
	v.SetDefault("server.ingress_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.headers.score", "X-Priority-Score")
	v.SetDefault("server.headers.label", "X-Priority-Label")
	v.SetDefault("server.headers.confidence", "X-Priority-Confidence")
	v.SetDefault("server.headers.reason", "X-Priority-Reason")
	v.SetDefault("server.relay.address", "127.0.0.1")
	v.SetDefault("server.relay.port", 10026)
	v.SetDefault("server.relay.enabled", true)
	v.SetDefault("server.subject_prefix", "")
	v.SetDefault("server.tag_critical_subject", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
