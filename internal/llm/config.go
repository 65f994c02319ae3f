package llm

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/abhisek/threatlab/internal/config"
)

// Provider names.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// ErrDisabled is returned when no provider is configured.
var ErrDisabled = errors.New("llm provider not configured")

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use. Empty disables the coach.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for compatible APIs
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64

	// Budget bounds one Generate call, retries included. Zero means no bound.
	Budget time.Duration
}

// DefaultConfig returns a Config with no provider and default models.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
			Budget:      45 * time.Second,
		},
	}
}

// FromSettings maps the llm section of the application config onto a
// Config. Unset models keep their defaults. When no provider is named, the
// standard vendor key variables are probed.
func FromSettings(s config.LLMConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = s.Provider

	cfg.Anthropic.APIKey = s.Anthropic.APIKey
	cfg.Anthropic.Model = orDefault(s.Anthropic.Model, cfg.Anthropic.Model)

	cfg.OpenAI.APIKey = s.OpenAI.APIKey
	cfg.OpenAI.Model = orDefault(s.OpenAI.Model, cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = s.OpenAI.BaseURL

	cfg.Gemini.APIKey = s.Gemini.APIKey
	cfg.Gemini.Model = orDefault(s.Gemini.Model, cfg.Gemini.Model)
	cfg.Gemini.BaseURL = s.Gemini.BaseURL

	cfg.OpenRouter.APIKey = s.OpenRouter.APIKey
	cfg.OpenRouter.Model = orDefault(s.OpenRouter.Model, cfg.OpenRouter.Model)
	cfg.OpenRouter.BaseURL = s.OpenRouter.BaseURL

	if cfg.Provider == "" {
		if found, ok := DiscoverConfig(); ok {
			found.Anthropic.Model = cfg.Anthropic.Model
			found.OpenAI.Model = cfg.OpenAI.Model
			found.Gemini.Model = cfg.Gemini.Model
			found.OpenRouter.Model = cfg.OpenRouter.Model
			return found
		}
	}
	return cfg
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DiscoverConfig probes the vendors' standard API key variables in
// priority order (Gemini, OpenAI, Anthropic, OpenRouter) and returns a
// Config for the first one set.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = ProviderOpenRouter
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// Validate checks that the selected provider has its API key set.
func (c Config) Validate() error {
	missing := func(provider string) error {
		return errors.WithHint(
			errors.Newf("an API key is required for the %s provider", provider),
			"set "+config.EnvPrefix+"_LLM_"+upper(provider)+"_API_KEY or llm."+provider+".api_key")
	}

	switch c.Provider {
	case "":
		return ErrDisabled
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing(ProviderAnthropic)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing(ProviderOpenAI)
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missing(ProviderGemini)
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missing(ProviderOpenRouter)
		}
	case ProviderMock:
	default:
		return errors.Newf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
