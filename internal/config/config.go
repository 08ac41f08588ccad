package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Cascade     CascadeConfig     `mapstructure:"cascade"`
	Security    SecurityConfig    `mapstructure:"security"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	UpdateCheck UpdateCheckConfig `mapstructure:"update_check"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the SQL driver ("sqlite3" or "postgres") and its DSN.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
	Channel  string `mapstructure:"channel"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CredentialsConfig struct {
	// EncryptionKey is either a base64 AES key or a passphrase.
	EncryptionKey string        `mapstructure:"encryption_key"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	Validate      bool          `mapstructure:"validate"`
}

type CascadeConfig struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	// Deadline bounds a whole cascade. Zero leaves it unbounded.
	Deadline       time.Duration `mapstructure:"deadline"`
	PlaceholderKey string        `mapstructure:"placeholder_key"`
}

type SecurityConfig struct {
	Classifier      string   `mapstructure:"classifier"` // host | strict
	CloudIndicators []string `mapstructure:"cloud_indicators"`
	CloudMode       string   `mapstructure:"cloud_mode"` // auto | cloud | local
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Mistral   ProviderConfig `mapstructure:"mistral"`
	Inception ProviderConfig `mapstructure:"inception"`
	Custom    ProviderConfig `mapstructure:"custom"`
}

// All returns the hosted and custom provider configs in registration order.
func (p ProvidersConfig) All() []ProviderConfig {
	return []ProviderConfig{p.OpenAI, p.Anthropic, p.Mistral, p.Inception, p.Custom}
}

// ProviderConfig configures one upstream adapter.
type ProviderConfig struct {
	ID          string            `mapstructure:"id"`
	Type        string            `mapstructure:"type"`
	BaseURL     string            `mapstructure:"base_url"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxTokens   int               `mapstructure:"max_tokens"`
	Temperature float64           `mapstructure:"temperature"`
	Models      []string          `mapstructure:"models"`
	Config      map[string]string `mapstructure:"config"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type UpdateCheckConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Repo    string `mapstructure:"repo"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// ENV:NAME indirection keeps secrets out of config files.
	if strings.HasPrefix(cfg.Credentials.EncryptionKey, "ENV:") {
		envVar := strings.TrimPrefix(cfg.Credentials.EncryptionKey, "ENV:")
		val := os.Getenv(envVar)
		if val == "" {
			val = v.GetString(envVar)
		}
		cfg.Credentials.EncryptionKey = val
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "file:chat-router.db?cache=shared&_journal_mode=WAL&_busy_timeout=5000")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "chat-router:credentials")

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("credentials.encryption_key", "ENV:ENCRYPTION_KEY")
	v.SetDefault("credentials.cache_ttl", "10m")
	v.SetDefault("credentials.validate", true)

	v.SetDefault("cascade.attempt_timeout", "30s")
	v.SetDefault("cascade.deadline", "0s")
	v.SetDefault("cascade.placeholder_key", "ollama")

	v.SetDefault("security.classifier", "host")
	v.SetDefault("security.cloud_indicators", []string{"RENDER", "DYNO", "VERCEL", "RAILWAY_ENVIRONMENT"})
	v.SetDefault("security.cloud_mode", "auto")

	setProviderDefaults(v, "openai", "openai", "https://api.openai.com/v1")
	setProviderDefaults(v, "anthropic", "anthropic", "https://api.anthropic.com/v1")
	setProviderDefaults(v, "mistral", "mistral", "https://api.mistral.ai/v1")
	setProviderDefaults(v, "inception", "openai", "https://api.inceptionlabs.ai/v1")
	setProviderDefaults(v, "custom", "openai", "")
	v.SetDefault("providers.custom.timeout", "30s")
	v.SetDefault("providers.anthropic.config", map[string]string{"version": "2023-06-01"})
	v.SetDefault("providers.mistral.models", []string{
		"mistral-small-latest",
		"mistral-medium-latest",
		"open-mistral-7b",
		"open-mixtral-8x7b",
	})

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "chat-router")

	v.SetDefault("update_check.enabled", false)
	v.SetDefault("update_check.repo", "nulzo/chat-router")
}

func setProviderDefaults(v *viper.Viper, id, typ, baseURL string) {
	prefix := "providers." + id + "."
	v.SetDefault(prefix+"id", id)
	v.SetDefault(prefix+"type", typ)
	v.SetDefault(prefix+"base_url", baseURL)
	v.SetDefault(prefix+"timeout", "60s")
	v.SetDefault(prefix+"max_tokens", 1000)
	v.SetDefault(prefix+"temperature", 0.7)
}
