package llm

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/abhisek/threatlab/internal/store"
)

// NewProvider builds the configured backend. Calls pass through retry
// first and then the recorder, so every attempt is logged. A nil repo
// disables recording.
func NewProvider(ctx context.Context, cfg Config, repo store.EventRepo) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		p, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		p = NewMockProvider()
	default:
		return nil, errors.Newf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if repo != nil {
		p = WithRecorder(p, repo)
	}
	return WithRetry(p, cfg.Retry), nil
}
