package store

import (
	"context"
	"time"
)

// QueryOpts filters QueryLLMEvents. Zero values match everything.
type QueryOpts struct {
	Limit    int
	Purpose  string
	Since    time.Time
	BeforeID int // page backwards from this id
}

// KVRepo is a small string key/value table for client state such as the
// session token.
type KVRepo interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// Draft is a locally autosaved editor state.
type Draft struct {
	Key        string
	Title      string
	ScenarioID string
	DiagramID  string
	Payload    []byte
	SavedAt    time.Time
}

// DraftRepo stores one draft per key (scenario or diagram).
type DraftRepo interface {
	// Save upserts the draft under d.Key.
	Save(ctx context.Context, d Draft) error

	// Get returns the draft for key, or nil if none exists.
	Get(ctx context.Context, key string) (*Draft, error)

	Delete(ctx context.Context, key string) error

	// List returns every draft, newest first.
	List(ctx context.Context) ([]Draft, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	LLMRequestEventData
	ID        int
	Timestamp time.Time
}

// LLMUsageStats aggregates token usage for one purpose.
type LLMUsageStats struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates token usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event by id, or nil if none exists.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}
