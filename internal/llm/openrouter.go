package llm

const openRouterURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider targets OpenRouter's OpenAI-compatible endpoint.
// Model IDs are vendor-qualified, e.g. "google/gemini-2.0-flash-exp".
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = openRouterURL
	}
	return newChatProvider(ProviderOpenRouter, cfg.APIKey, base, cfg.Model)
}
