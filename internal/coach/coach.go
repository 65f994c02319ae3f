// Package coach explains validation findings and score results through an
// LLM. It is optional: callers check Enabled before offering it.
package coach

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/llm"
	"github.com/abhisek/threatlab/internal/logging"
)

// ErrNothingToExplain is returned when there are no findings.
var ErrNothingToExplain = errors.New("no findings to explain")

// ExplainInput is the diagram and findings to explain.
type ExplainInput struct {
	DiagramID string
	Scenario  *api.Scenario
	Nodes     []api.Node
	Edges     []api.Edge
	Results   []api.ValidationResult
}

// Item explains one finding.
type Item struct {
	RuleID       string `json:"rule_id"`
	WhyItMatters string `json:"why_it_matters"`
	Fix          string `json:"fix"`
}

// Advice is the coach's explanation of a set of findings.
type Advice struct {
	Summary string `json:"summary"`
	Items   []Item `json:"items"`
}

// ForRule returns the item for ruleID, if any.
func (a *Advice) ForRule(ruleID string) (Item, bool) {
	for _, it := range a.Items {
		if it.RuleID == ruleID {
			return it, true
		}
	}
	return Item{}, false
}

// Review is the coach's take on a score.
type Review struct {
	Headline   string   `json:"headline"`
	FocusAreas []string `json:"focus_areas"`
	NextSteps  []string `json:"next_steps"`
}

// Coach generates advice. A nil *Coach is valid and disabled.
type Coach struct {
	provider llm.Provider
	cfg      Config
	log      *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]*Advice
}

// New creates a Coach. A nil provider yields a disabled coach.
func New(provider llm.Provider, cfg Config) *Coach {
	if provider == nil {
		return nil
	}
	return &Coach{
		provider: provider,
		cfg:      cfg,
		log:      logging.Component("coach"),
		cache:    make(map[string]*Advice),
	}
}

// Enabled reports whether the coach can be used.
func (c *Coach) Enabled() bool {
	return c != nil && c.provider != nil
}

// Explain returns advice for the findings. Results are cached per diagram
// and finding set.
func (c *Coach) Explain(ctx context.Context, in ExplainInput) (*Advice, error) {
	if !c.Enabled() {
		return nil, llm.ErrDisabled
	}
	if len(in.Results) == 0 {
		return nil, ErrNothingToExplain
	}

	key := cacheKey(in)
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	req := llm.Request{
		Purpose:     llm.PurposeExplainFindings,
		System:      explainSystemPrompt,
		Prompt:      buildExplainUserMessage(in, c.cfg.MaxFindings),
		Schema:      ExplanationSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		c.log.Warnw("explain findings failed", logging.FieldError, err)
		return nil, errors.Wrap(err, "explain findings")
	}

	var out Advice
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "parse explanation")
	}

	c.mu.Lock()
	c.cache[key] = &out
	c.mu.Unlock()
	return &out, nil
}

// ReviewScore returns a short review of a scored attempt.
func (c *Coach) ReviewScore(ctx context.Context, score *api.Score, scenario *api.Scenario) (*Review, error) {
	if !c.Enabled() {
		return nil, llm.ErrDisabled
	}
	if score == nil {
		return nil, errors.New("no score to review")
	}

	req := llm.Request{
		Purpose:     llm.PurposeReviewScore,
		System:      reviewSystemPrompt,
		Prompt:      buildReviewUserMessage(score, scenario),
		Schema:      ReviewSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		c.log.Warnw("review score failed", "score", score.ID, logging.FieldError, err)
		return nil, errors.Wrap(err, "review score")
	}

	var out Review
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, errors.Wrap(err, "parse review")
	}
	return &out, nil
}

func cacheKey(in ExplainInput) string {
	b, _ := json.Marshal(struct {
		ID      string
		Nodes   int
		Edges   int
		Results []api.ValidationResult
	}{in.DiagramID, len(in.Nodes), len(in.Edges), in.Results})
	return string(b)
}
