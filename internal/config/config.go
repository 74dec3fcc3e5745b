package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // memory, sqlite, postgres or redis
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type SQLiteConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // anthropic, openai or echo
	Model        string `mapstructure:"model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
	// SQLitePath holds users and sessions when the conversation store is not sqlite.
	// Empty keeps them in memory.
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

const EnvPrefix = "CHATBOX"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite.path", "chatbox.db")
	v.SetDefault("storage.sqlite.driver", "sqlite3")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.prefix", "chatbox")

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.system_prompt", "")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.sqlite_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads defaults, then the optional YAML file at path, then CHATBOX_* environment
// variables (CHATBOX_STORAGE_BACKEND overrides storage.backend).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var ErrInvalid = errors.New("invalid configuration")

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "redis":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("%w: storage.sqlite.path is required for the sqlite backend", ErrInvalid)
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("%w: storage.postgres.dsn is required for the postgres backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalid, c.Storage.Backend)
	}

	switch c.LLM.Provider {
	case "anthropic", "openai", "echo":
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalid, c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalid)
	}
	if c.Auth.Enabled && c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("%w: auth.session_ttl must be positive", ErrInvalid)
	}
	return nil
}
