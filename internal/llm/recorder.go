package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/store"
)

type recording struct {
	Provider
	repo store.EventRepo
	log  *zap.SugaredLogger
	now  func() time.Time
}

// WithRecorder appends one event per call to repo. Recording failures are
// logged and never surface to the caller.
func WithRecorder(p Provider, repo store.EventRepo) Provider {
	return &recording{Provider: p, repo: repo, log: logging.Component("llm"), now: time.Now}
}

func (r *recording) Generate(ctx context.Context, req Request) (*Response, error) {
	start := r.now()
	resp, err := r.Provider.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    r.Name(),
		Model:       r.Model(),
		Purpose:     req.Purpose,
		LatencyMs:   r.now().Sub(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if ev.Purpose == "" {
		ev.Purpose = "unknown"
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.Input
		ev.OutputTokens = resp.Usage.Output
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		var e *Error
		if errors.As(err, &e) && len(e.Content) > 0 {
			ev.ResponseBody = string(e.Content)
		}
	}

	r.log.Debugw("llm call",
		"provider", ev.Provider,
		"model", ev.Model,
		"purpose", ev.Purpose,
		"tokens", ev.InputTokens+ev.OutputTokens,
		logging.FieldDurationMS, ev.LatencyMs,
	)
	if werr := r.repo.AppendLLMRequest(context.WithoutCancel(ctx), ev); werr != nil {
		r.log.Warnw("record llm call", logging.FieldError, werr)
	}
	return resp, err
}

// transcript is the human-readable request body kept in the event log.
func transcript(req Request) string {
	var b strings.Builder
	section := func(name, body string) {
		b.WriteString("## " + name + "\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	if req.System != "" {
		section("system", req.System)
	}
	section("prompt", req.Prompt)
	if req.Schema != nil {
		if def, err := json.MarshalIndent(req.Schema.Definition, "", "  "); err == nil {
			section("schema "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
