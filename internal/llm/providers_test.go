package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body any, seen *map[string]any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicReply(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 40, "output_tokens": 9},
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var seen map[string]any
	url := serve(t, 200, anthropicReply(`{"summary":"Put an API gateway in front."}`, "end_turn"), &seen)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"},
		option.WithBaseURL(url), option.WithMaxRetries(0))
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5", p.Model())

	resp, err := p.Generate(context.Background(), Request{
		System:    "coach",
		Prompt:    "Explain ARCH001.",
		Schema:    summarySchema,
		MaxTokens: 128,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Put an API gateway in front."}`, string(resp.Content))
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Equal(t, 49, resp.Usage.Total())
	assert.Equal(t, "claude-haiku-4-5", seen["model"])
	assert.EqualValues(t, 128, seen["max_tokens"])
}

func TestAnthropicTruncated(t *testing.T) {
	url := serve(t, 200, anthropicReply(`{"summary":"Put an`, "max_tokens"), nil)
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "m"},
		option.WithBaseURL(url), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "p", Schema: summarySchema, MaxTokens: 8})
	assert.ErrorIs(t, err, &Error{Kind: KindTruncated})
}

func TestAnthropicRateLimited(t *testing.T) {
	url := serve(t, 429, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
	}, nil)
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "m"},
		option.WithBaseURL(url), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "p", MaxTokens: 8})
	assert.ErrorIs(t, err, &Error{Kind: KindRateLimit})
}

func chatReply(content, finish string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 5, "total_tokens": 35},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var seen map[string]any
	url := serve(t, 200, chatReply(`{"summary":"Encrypt the link."}`, "stop"), &seen)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{
		System: "coach",
		Prompt: "Explain SEC002.",
		Schema: summarySchema,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)
	assert.Equal(t, Usage{Input: 30, Output: 5}, resp.Usage)

	msgs, _ := seen["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	format, _ := seen["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIInvalidReply(t *testing.T) {
	url := serve(t, 200, chatReply(`I think you should add TLS.`, "stop"), nil)
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "p", Schema: summarySchema})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindInvalidResponse, e.Kind)
	assert.Equal(t, "I think you should add TLS.", string(e.Content))
}

func TestOpenAIStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{429, KindRateLimit},
		{401, KindAuth},
		{502, KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			url := serve(t, tt.status, map[string]any{
				"error": map[string]any{"message": "nope", "type": "server_error"},
			}, nil)
			p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url})
			require.NoError(t, err)

			_, err = p.Generate(context.Background(), Request{Prompt: "p"})
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestOpenRouterProvider(t *testing.T) {
	_, err := NewOpenRouterProvider(OpenRouterConfig{Model: "meta-llama/llama-3-8b"})
	require.Error(t, err)

	url := serve(t, 200, chatReply(`{"summary":"ok"}`, "stop"), nil)
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", Model: "anthropic/claude-3-haiku", BaseURL: url})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, p.Name())
	assert.Equal(t, "anthropic/claude-3-haiku", p.Model())

	_, err = p.Generate(context.Background(), Request{Prompt: "p", Schema: summarySchema})
	require.NoError(t, err)
}

func TestGeminiGenerate(t *testing.T) {
	var seen map[string]any
	url := serve(t, 200, map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": `{"summary":"Add a WAF."}`}}},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 21, "candidatesTokenCount": 6, "totalTokenCount": 27},
		"modelVersion":  "gemini-2.5-flash",
	}, &seen)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", Model: "gemini-flash", BaseURL: url})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", p.Model())

	resp, err := p.Generate(context.Background(), Request{System: "coach", Prompt: "p", Schema: summarySchema})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Add a WAF."}`, string(resp.Content))
	assert.Equal(t, 27, resp.Usage.Total())

	gc, _ := seen["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gc["responseMimeType"])
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"severity": map[string]any{"type": "string", "enum": []any{"error", "warning"}},
			"steps":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"severity"},
	})
	assert.Equal(t, "OBJECT", string(s.Type))
	assert.Equal(t, []string{"severity"}, s.Required)
	assert.Equal(t, []string{"error", "warning"}, s.Properties["severity"].Enum)
	assert.Equal(t, "ARRAY", string(s.Properties["steps"].Type))
	assert.Equal(t, "STRING", string(s.Properties["steps"].Items.Type))
}
