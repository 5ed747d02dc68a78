// Package config provides layered configuration management for the server,
// CLI, and worker entry points.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for a shgat-engine process.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`

	Engine  EngineConfig  `mapstructure:"engine"`
	Persist PersistConfig `mapstructure:"persist"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// EngineConfig fixes an Engine's structural hyperparameters (spec §4.6, §6.1).
type EngineConfig struct {
	EmbeddingDim int     `mapstructure:"embedding_dim"`
	NumHeads     int     `mapstructure:"num_heads"` // 0 selects adaptive heads
	HeadDim      int     `mapstructure:"head_dim"`
	Seed         int64   `mapstructure:"seed"`
	LearningRate float64 `mapstructure:"learning_rate"`
	L2Lambda     float64 `mapstructure:"l2_lambda"`
}

// PersistConfig selects and configures the internal/store backend.
type PersistConfig struct {
	Backend  string       `mapstructure:"backend"` // "memory", "sqlite", or "cos"
	SQLite   SQLiteConfig `mapstructure:"sqlite"`
	COS      COSConfig    `mapstructure:"cos"`
	EngineID string       `mapstructure:"engine_id"` // store key for this engine instance
}

// SQLiteConfig configures the embedded sqlite persistence backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// COSConfig configures the Tencent Cloud COS persistence backend.
type COSConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	Prefix    string `mapstructure:"prefix"`
}

// OIDCConfig holds OIDC authentication configuration, guarding mutating
// engine endpoints (insert_tool, insert_capability, train).
type OIDCConfig struct {
	Issuer       string `mapstructure:"issuer"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// WebhookConfig holds the HMAC secret guarding the outcome-event webhook.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// Load reads configuration layered, from lowest to highest precedence:
// built-in defaults, a YAML config file, then environment variables. An
// optional .env file is loaded into the process environment first (without
// overriding variables already set), so its values rank as environment
// variables. configPath may be empty to search standard locations.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shgat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/shgat")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SHGAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnvAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// bindLegacyEnvAliases binds a handful of bare (unprefixed) environment
// variable names the teacher's original getEnv-based loader used, so
// existing deployment scripts keep working under the viper-based loader.
func bindLegacyEnvAliases(v *viper.Viper) {
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	_ = v.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = v.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = v.BindEnv("oidc.client_secret", "OIDC_CLIENT_SECRET")
	_ = v.BindEnv("webhook.secret", "WEBHOOK_SECRET")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_allowed_origins", "")

	v.SetDefault("engine.embedding_dim", 64)
	v.SetDefault("engine.num_heads", 0)
	v.SetDefault("engine.head_dim", 16)
	v.SetDefault("engine.seed", 42)
	v.SetDefault("engine.learning_rate", 0.01)
	v.SetDefault("engine.l2_lambda", 1e-4)

	v.SetDefault("persist.backend", "memory")
	v.SetDefault("persist.engine_id", "default")
	v.SetDefault("persist.sqlite.path", "./shgat.db")

	v.SetDefault("oidc.issuer", "")
	v.SetDefault("webhook.secret", "")
}

// Validate checks invariants Load's defaults alone can't guarantee.
func (c *Config) Validate() error {
	if c.Engine.EmbeddingDim <= 0 {
		return fmt.Errorf("engine.embedding_dim must be positive")
	}
	if c.Engine.HeadDim <= 0 {
		return fmt.Errorf("engine.head_dim must be positive")
	}
	switch c.Persist.Backend {
	case "memory", "sqlite", "cos":
	default:
		return fmt.Errorf("unsupported persist.backend: %s", c.Persist.Backend)
	}
	if c.Persist.Backend == "cos" {
		if c.Persist.COS.Bucket == "" || c.Persist.COS.Region == "" {
			return fmt.Errorf("persist.cos.bucket and persist.cos.region are required for the cos backend")
		}
	}
	return nil
}
