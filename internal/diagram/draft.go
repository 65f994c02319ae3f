package diagram

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/store"
)

// Draft is the locally autosaved part of a diagram.
type Draft struct {
	DiagramID string              `json:"diagram_id,omitempty"`
	Nodes     []api.Node          `json:"nodes"`
	Edges     []api.Edge          `json:"edges"`
	Metadata  api.DiagramMetadata `json:"metadata"`
}

// Draft captures the current graph and metadata.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := Draft{
		Nodes:    cloneNodes(s.nodes),
		Edges:    cloneEdges(s.edges),
		Metadata: cloneMetadata(s.meta),
	}
	if s.current != nil {
		d.DiagramID = s.current.ID
	}
	return d
}

// RestoreDraft replaces the graph and metadata with d. The server-side
// diagram is kept, and the restored state counts as unsaved.
func (s *Store) RestoreDraft(d Draft) {
	s.mutate(func() {
		s.nodes = cloneNodes(d.Nodes)
		s.edges = cloneEdges(d.Edges)
		s.meta = cloneMetadata(d.Metadata)
		s.selected = ""
	})
}

// DraftKey names the draft slot for a diagram, or for a new diagram of a
// scenario when diagramID is empty.
func DraftKey(diagramID, scenarioID string) string {
	switch {
	case diagramID != "":
		return "diagram:" + diagramID
	case scenarioID != "":
		return "scenario:" + scenarioID
	default:
		return "scratch"
	}
}

// Autosaver writes drafts to the local store at most once per interval.
type Autosaver struct {
	repo    store.DraftRepo
	limiter *rate.Limiter
}

// NewAutosaver creates an Autosaver. A non-positive interval disables
// throttling.
func NewAutosaver(repo store.DraftRepo, interval time.Duration) *Autosaver {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Autosaver{repo: repo, limiter: rate.NewLimiter(limit, 1)}
}

// MaybeSave saves d unless a save happened within the interval. It reports
// whether a save was written.
func (a *Autosaver) MaybeSave(ctx context.Context, key, title, scenarioID string, d Draft) (bool, error) {
	if !a.limiter.Allow() {
		return false, nil
	}
	return true, a.Save(ctx, key, title, scenarioID, d)
}

// Save writes d unconditionally.
func (a *Autosaver) Save(ctx context.Context, key, title, scenarioID string, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encode draft")
	}
	return a.repo.Save(ctx, store.Draft{
		Key:        key,
		Title:      title,
		ScenarioID: scenarioID,
		DiagramID:  d.DiagramID,
		Payload:    payload,
		SavedAt:    time.Now(),
	})
}

// Load returns the draft saved under key, or nil.
func (a *Autosaver) Load(ctx context.Context, key string) (*Draft, error) {
	rec, err := a.repo.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(rec.Payload, &d); err != nil {
		return nil, errors.Wrapf(err, "decode draft %q", key)
	}
	return &d, nil
}

// Discard removes the draft saved under key.
func (a *Autosaver) Discard(ctx context.Context, key string) error {
	return a.repo.Delete(ctx, key)
}
