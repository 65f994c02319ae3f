// Package llm talks to hosted language models on behalf of the coach.
// Every backend returns JSON checked against the caller's Schema.
package llm

import (
	"context"
	"encoding/json"
)

// Purposes tag each request in the local event log.
const (
	PurposeExplainFindings = "explain-findings"
	PurposeReviewScore     = "review-score"
)

// Provider generates one structured completion per call.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// Name is the backend name, e.g. "openai".
	Name() string
	// Model is the configured model ID.
	Model() string
}

// Request is a single-turn prompt.
type Request struct {
	Purpose string
	System  string
	Prompt  string

	// Schema, when set, switches the backend to structured output and the
	// reply is validated before it is returned.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// StopReason is why the backend stopped generating.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

// Response is the backend's reply.
type Response struct {
	Content    json.RawMessage
	Model      string
	StopReason StopReason
	Usage      Usage
}

// Usage counts tokens for one call.
type Usage struct {
	Input  int
	Output int
}

func (u Usage) Total() int { return u.Input + u.Output }
