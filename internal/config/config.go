// Package config loads threatlab settings from defaults, an optional TOML
// file and THREATLAB_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// THREATLAB_API_BASE_URL for api.base_url.
const EnvPrefix = "THREATLAB"

// Config is the resolved configuration.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Editor EditorConfig `mapstructure:"editor"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Demo   DemoConfig   `mapstructure:"demo"`
}

// APIConfig points at the platform backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig locates the local sqlite database. Empty Path means the XDG
// default resolved by the store package.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// EditorConfig tunes the diagram editor.
type EditorConfig struct {
	// SyncInterval is how often ephemeral canvas state is pushed into the
	// diagram store.
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	// AutosaveInterval is the minimum gap between local draft writes.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// LLMConfig selects the optional coach provider.
type LLMConfig struct {
	Provider   string         `mapstructure:"provider"`
	Anthropic  ProviderConfig `mapstructure:"anthropic"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	OpenRouter ProviderConfig `mapstructure:"openrouter"`
}

// ProviderConfig holds one provider's credentials.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// DemoConfig configures the bundled demo backend.
type DemoConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8001/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("editor.sync_interval", 500*time.Millisecond)
	v.SetDefault("editor.autosave_interval", 5*time.Second)
	v.SetDefault("llm.provider", "")
	for _, p := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		v.SetDefault("llm."+p+".api_key", "")
		v.SetDefault("llm."+p+".base_url", "")
	}
	v.SetDefault("llm.anthropic.model", "claude-haiku")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.gemini.model", "gemini-flash")
	v.SetDefault("llm.openrouter.model", "google/gemini-2.0-flash-exp")
	v.SetDefault("demo.addr", ":8001")
}

// New builds a viper instance with defaults and environment binding. When
// file is non-empty it must exist; otherwise the user config directory is
// searched for threatlab.toml.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
		return v, nil
	}

	if dir, err := DefaultDir(); err == nil {
		v.SetConfigName("threatlab")
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}
	return v, nil
}

// Load resolves the configuration.
func Load(file string) (*Config, error) {
	v, err := New(file)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper unmarshals a prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		return nil, errors.WithHint(errors.New("api.base_url is empty"),
			"set THREATLAB_API_BASE_URL or api.base_url in threatlab.toml")
	}
	return &cfg, nil
}

// DefaultDir returns $XDG_CONFIG_HOME/threatlab or ~/.config/threatlab.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "threatlab"), nil
}
