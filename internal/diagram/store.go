// Package diagram holds the editable architecture diagram and mediates its
// synchronization with the backend.
package diagram

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
)

// Remote is the subset of the API client the store uses.
type Remote interface {
	GetDiagram(ctx context.Context, id string) (*api.Diagram, error)
	CreateDiagram(ctx context.Context, d api.DiagramCreate) (*api.Diagram, error)
	UpdateDiagram(ctx context.Context, id string, upd api.DiagramUpdate) (*api.Diagram, error)
	SubmitDiagram(ctx context.Context, id string) (*api.Diagram, error)
	Validate(ctx context.Context, diagramID string) (*api.ValidationResponse, error)
	Score(ctx context.Context, diagramID string, timeSpent int) (*api.Score, error)
}

// DefaultTitle is used when a diagram is created without a title.
const DefaultTitle = "Untitled diagram"

// Phase is the informal lifecycle position of the diagram.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseEditing
	PhaseSaved
	PhaseValidated
	PhaseSubmitted
	PhaseScored
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSaved:
		return "saved"
	case PhaseValidated:
		return "validated"
	case PhaseSubmitted:
		return "submitted"
	case PhaseScored:
		return "scored"
	default:
		return "empty"
	}
}

// NodePatch is a shallow update. Nil fields are left unchanged; a non-nil
// Data replaces the whole data bag.
type NodePatch struct {
	Type     *api.NodeType
	Position *api.Position
	Data     map[string]any
}

// EdgePatch is a shallow update. Nil fields are left unchanged; a non-nil
// Data replaces the whole data bag.
type EdgePatch struct {
	Source *string
	Target *string
	Type   *string
	Data   map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the id generator. Default: UUIDGenerator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithNotifier sets where failure and success toasts go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = l }
}

// Store holds one diagram's graph, metadata, validation results and the
// server-side representation. It is safe for concurrent use; remote calls
// run without holding the lock.
type Store struct {
	remote   Remote
	ids      IDGenerator
	notifier notify.Notifier
	log      *zap.SugaredLogger

	mu        sync.Mutex
	nodes     []api.Node
	edges     []api.Edge
	meta      api.DiagramMetadata
	results   []api.ValidationResult
	current   *api.Diagram
	lastScore *api.Score
	selected  string
	validated bool

	// rev counts local mutations; saved is the rev last written to the server.
	rev   uint64
	saved uint64
	// gen changes whenever a different diagram is loaded or cleared, so late
	// remote replies for the old one are dropped.
	gen uint64

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

// New creates an empty Store.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		ids:      UUIDGenerator{},
		notifier: notify.Discard{},
		log:      logging.Component("diagram"),
		subs:     make(map[int]func()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) changed() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// mutate runs fn under the lock, bumps the revision and notifies listeners.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.rev++
	s.mu.Unlock()
	s.changed()
}

// SetNodes replaces every node. Edges are not checked.
func (s *Store) SetNodes(nodes []api.Node) {
	s.mutate(func() { s.nodes = cloneNodes(nodes) })
}

// SetEdges replaces every edge. Endpoints are not checked.
func (s *Store) SetEdges(edges []api.Edge) {
	s.mutate(func() { s.edges = cloneEdges(edges) })
}

// AddNode appends n as given.
func (s *Store) AddNode(n api.Node) {
	s.mutate(func() { s.nodes = append(s.nodes, cloneNode(n)) })
}

// AddEdge appends e as given.
func (s *Store) AddEdge(e api.Edge) {
	s.mutate(func() { s.edges = append(s.edges, cloneEdge(e)) })
}

// NewNode creates a node with a fresh id and adds it.
func (s *Store) NewNode(t api.NodeType, pos api.Position, label string) api.Node {
	n := api.Node{
		ID:       s.ids.NewID(string(t)),
		Type:     t,
		Position: pos,
		Data:     map[string]any{},
	}
	if label != "" {
		n.Data[api.DataLabel] = label
	}
	s.AddNode(n)
	return n
}

// Connect creates a default edge from source to target with a fresh id and
// adds it.
func (s *Store) Connect(source, target string) api.Edge {
	e := api.Edge{
		ID:     s.ids.NewID(KindEdge),
		Source: source,
		Target: target,
		Type:   api.DefaultEdgeType,
		Data:   map[string]any{},
	}
	s.AddEdge(e)
	return e
}

// UpdateNode merges p into the node with id. Unknown ids are ignored.
func (s *Store) UpdateNode(id string, p NodePatch) {
	s.mutate(func() {
		i := s.nodeIndex(id)
		if i < 0 {
			return
		}
		n := &s.nodes[i]
		if p.Type != nil {
			n.Type = *p.Type
		}
		if p.Position != nil {
			n.Position = *p.Position
		}
		if p.Data != nil {
			n.Data = maps.Clone(p.Data)
		}
	})
}

// UpdateEdge merges p into the edge with id. Unknown ids are ignored.
func (s *Store) UpdateEdge(id string, p EdgePatch) {
	s.mutate(func() {
		i := s.edgeIndex(id)
		if i < 0 {
			return
		}
		e := &s.edges[i]
		if p.Source != nil {
			e.Source = *p.Source
		}
		if p.Target != nil {
			e.Target = *p.Target
		}
		if p.Type != nil {
			e.Type = *p.Type
		}
		if p.Data != nil {
			e.Data = maps.Clone(p.Data)
		}
	})
}

// SetNodeProperty sets one key of a node's data bag.
func (s *Store) SetNodeProperty(id, key string, value any) {
	s.mutate(func() {
		i := s.nodeIndex(id)
		if i < 0 {
			return
		}
		if s.nodes[i].Data == nil {
			s.nodes[i].Data = map[string]any{}
		}
		s.nodes[i].Data[key] = value
	})
}

// SetEdgeProperty sets one key of an edge's data bag.
func (s *Store) SetEdgeProperty(id, key string, value any) {
	s.mutate(func() {
		i := s.edgeIndex(id)
		if i < 0 {
			return
		}
		if s.edges[i].Data == nil {
			s.edges[i].Data = map[string]any{}
		}
		s.edges[i].Data[key] = value
	})
}

// RemoveNode deletes the node and every edge touching it.
func (s *Store) RemoveNode(id string) {
	s.mutate(func() {
		s.nodes = slices.DeleteFunc(s.nodes, func(n api.Node) bool { return n.ID == id })
		s.edges = slices.DeleteFunc(s.edges, func(e api.Edge) bool {
			if e.Source == id || e.Target == id {
				if s.selected == e.ID {
					s.selected = ""
				}
				return true
			}
			return false
		})
		if s.selected == id {
			s.selected = ""
		}
	})
}

// RemoveEdge deletes the edge only.
func (s *Store) RemoveEdge(id string) {
	s.mutate(func() {
		s.edges = slices.DeleteFunc(s.edges, func(e api.Edge) bool { return e.ID == id })
		if s.selected == id {
			s.selected = ""
		}
	})
}

// SetMetadata replaces the diagram metadata.
func (s *Store) SetMetadata(m api.DiagramMetadata) {
	s.mutate(func() { s.meta = cloneMetadata(m) })
}

// AddTrustBoundary appends b, assigning an id when it has none.
func (s *Store) AddTrustBoundary(b api.TrustBoundary) api.TrustBoundary {
	if b.ID == "" {
		b.ID = s.ids.NewID(KindTrustBoundary)
	}
	b.Nodes = slices.Clone(b.Nodes)
	s.mutate(func() { s.meta.TrustBoundaries = append(s.meta.TrustBoundaries, b) })
	return b
}

// AddDataFlow appends f, assigning an id when it has none.
func (s *Store) AddDataFlow(f api.DataFlow) api.DataFlow {
	if f.ID == "" {
		f.ID = s.ids.NewID(KindDataFlow)
	}
	s.mutate(func() { s.meta.DataFlows = append(s.meta.DataFlows, f) })
	return f
}

// AddSecurityControl appends c, assigning an id when it has none.
func (s *Store) AddSecurityControl(c api.SecurityControl) api.SecurityControl {
	if c.ID == "" {
		c.ID = s.ids.NewID(KindSecurityControl)
	}
	c.AppliedTo = slices.Clone(c.AppliedTo)
	s.mutate(func() { s.meta.SecurityControls = append(s.meta.SecurityControls, c) })
	return c
}

// Select marks a node or edge as selected. An empty id clears the selection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.changed()
}

// Selected returns the selected node or edge id, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ClearDiagram resets everything, including the server-side diagram.
func (s *Store) ClearDiagram() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.changed()
}

func (s *Store) resetLocked() {
	s.nodes = nil
	s.edges = nil
	s.meta = api.DiagramMetadata{}
	s.results = nil
	s.current = nil
	s.lastScore = nil
	s.selected = ""
	s.validated = false
	s.rev = 0
	s.saved = 0
	s.gen++
}

// Nodes returns a copy of the nodes.
func (s *Store) Nodes() []api.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneNodes(s.nodes)
}

// Edges returns a copy of the edges.
func (s *Store) Edges() []api.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEdges(s.edges)
}

// Metadata returns a copy of the metadata.
func (s *Store) Metadata() api.DiagramMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMetadata(s.meta)
}

// ValidationResults returns a copy of the latest validation results.
func (s *Store) ValidationResults() []api.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// Current returns the server representation of the diagram, or nil when it
// has never been saved or loaded.
func (s *Store) Current() *api.Diagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDiagram(s.current)
}

// LastScore returns the score from the latest successful submission.
func (s *Store) LastScore() *api.Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneScore(s.lastScore)
}

// Dirty reports whether there are local changes not yet saved.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev != s.saved
}

// Phase derives the lifecycle position from the current state.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.current == nil || s.rev != s.saved:
		if len(s.nodes) == 0 && len(s.edges) == 0 && s.current == nil && metadataEmpty(s.meta) {
			return PhaseEmpty
		}
		return PhaseEditing
	case s.lastScore != nil:
		return PhaseScored
	case submitted(s.current):
		return PhaseSubmitted
	case s.validated:
		return PhaseValidated
	default:
		return PhaseSaved
	}
}

// ValidateDiagram asks the backend to validate the saved diagram. Without a
// saved diagram it does nothing. On failure prior results are kept.
func (s *Store) ValidateDiagram(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil || s.current.ID == "" {
		s.mu.Unlock()
		return nil
	}
	id, gen := s.current.ID, s.gen
	s.mu.Unlock()

	resp, err := s.remote.Validate(ctx, id)
	if err != nil {
		s.fail("Validation failed", err, id)
		return err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.results = slices.Clone(resp.ValidationResults)
		if s.results == nil {
			s.results = []api.ValidationResult{}
		}
		s.validated = true
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// SaveDiagram writes the graph and metadata to the backend, updating the
// saved diagram or creating a new one. An empty title keeps the existing
// title on update.
func (s *Store) SaveDiagram(ctx context.Context, title, scenarioID string) (*api.Diagram, error) {
	s.mu.Lock()
	data := api.DiagramData{Nodes: cloneNodes(s.nodes), Edges: cloneEdges(s.edges)}
	meta := cloneMetadata(s.meta)
	rev, gen := s.rev, s.gen
	var id string
	if s.current != nil {
		id = s.current.ID
	}
	s.mu.Unlock()

	normalize(&data, &meta)

	var (
		d   *api.Diagram
		err error
	)
	if id != "" {
		upd := api.DiagramUpdate{DiagramData: &data, Metadata: &meta}
		if title != "" {
			upd.Title = &title
		}
		d, err = s.remote.UpdateDiagram(ctx, id, upd)
	} else {
		if title == "" {
			title = DefaultTitle
		}
		d, err = s.remote.CreateDiagram(ctx, api.DiagramCreate{
			Title:       title,
			ScenarioID:  scenarioID,
			DiagramData: data,
			Metadata:    meta,
		})
	}
	if err != nil {
		s.fail("Failed to save diagram", err, id)
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.current = d
		s.saved = rev
		s.validated = false
		s.lastScore = nil
	}
	s.mu.Unlock()

	s.log.Debugw("diagram saved", logging.FieldDiagramID, d.ID, "version", d.Version)
	s.notifier.Notify(notify.LevelSuccess, "Diagram saved")
	s.changed()

	return cloneDiagram(d), nil
}

// LoadDiagram replaces all local state with the diagram id from the
// backend. Validation results, selection and the last score are reset.
func (s *Store) LoadDiagram(ctx context.Context, id string) error {
	d, err := s.remote.GetDiagram(ctx, id)
	if err != nil {
		s.fail("Failed to load diagram", err, id)
		return err
	}

	s.mu.Lock()
	s.resetLocked()
	s.nodes = cloneNodes(d.DiagramData.Nodes)
	s.edges = cloneEdges(d.DiagramData.Edges)
	s.meta = cloneMetadata(d.Metadata)
	s.current = d
	s.mu.Unlock()

	s.changed()
	return nil
}

// SubmitForScoring submits the saved diagram and requests its score.
// timeSpent is in seconds. When the submit call succeeds but scoring
// fails, the diagram stays submitted and a *PartialSubmitError is
// returned; a later call skips the submit step.
func (s *Store) SubmitForScoring(ctx context.Context, timeSpent int) (*api.Score, error) {
	s.mu.Lock()
	if s.current == nil || s.current.ID == "" {
		s.mu.Unlock()
		err := errors.WithHint(ErrNotPersisted, "save the diagram before submitting")
		s.notifier.Error("Save the diagram before submitting", err)
		return nil, err
	}
	id, gen := s.current.ID, s.gen
	alreadySubmitted := submitted(s.current)
	s.mu.Unlock()

	if timeSpent < 0 {
		timeSpent = 0
	}

	if !alreadySubmitted {
		d, err := s.remote.SubmitDiagram(ctx, id)
		if err != nil {
			s.fail("Failed to submit diagram", err, id)
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen && s.current != nil {
			if d != nil && d.ID != "" {
				s.current = d
			}
			s.current.Status = api.StatusSubmitted
		}
		s.mu.Unlock()
		s.changed()
	}

	score, err := s.remote.Score(ctx, id, timeSpent)
	if err != nil {
		if !alreadySubmitted {
			perr := &PartialSubmitError{DiagramID: id, Err: err}
			s.fail("Diagram submitted but scoring failed; submit again to retry scoring", perr, id)
			return nil, perr
		}
		s.fail("Scoring failed", err, id)
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.lastScore = score
		if score.ValidationResults != nil {
			s.results = slices.Clone(score.ValidationResults)
		}
	}
	s.mu.Unlock()

	s.log.Infow("diagram scored", logging.FieldDiagramID, id, "total", score.Scores.TotalScore)
	s.notifier.Notify(notify.LevelSuccess, "Diagram scored")
	s.changed()

	return cloneScore(score), nil
}

func (s *Store) fail(msg string, err error, diagramID string) {
	s.log.Warnw(msg, logging.FieldDiagramID, diagramID, logging.FieldError, err)
	s.notifier.Error(msg, err)
}

func (s *Store) nodeIndex(id string) int {
	return slices.IndexFunc(s.nodes, func(n api.Node) bool { return n.ID == id })
}

func (s *Store) edgeIndex(id string) int {
	return slices.IndexFunc(s.edges, func(e api.Edge) bool { return e.ID == id })
}

func submitted(d *api.Diagram) bool {
	return d != nil && (d.Status == api.StatusSubmitted || d.Status == api.StatusReviewed)
}

func metadataEmpty(m api.DiagramMetadata) bool {
	return len(m.TrustBoundaries) == 0 && len(m.DataFlows) == 0 && len(m.SecurityControls) == 0
}

// normalize fills the fields the backend requires to be present.
func normalize(data *api.DiagramData, meta *api.DiagramMetadata) {
	if data.Nodes == nil {
		data.Nodes = []api.Node{}
	}
	if data.Edges == nil {
		data.Edges = []api.Edge{}
	}
	for i := range data.Nodes {
		if data.Nodes[i].Data == nil {
			data.Nodes[i].Data = map[string]any{}
		}
	}
	for i := range data.Edges {
		if data.Edges[i].Type == "" {
			data.Edges[i].Type = api.DefaultEdgeType
		}
		if data.Edges[i].Data == nil {
			data.Edges[i].Data = map[string]any{}
		}
	}
	if meta.TrustBoundaries == nil {
		meta.TrustBoundaries = []api.TrustBoundary{}
	}
	if meta.DataFlows == nil {
		meta.DataFlows = []api.DataFlow{}
	}
	if meta.SecurityControls == nil {
		meta.SecurityControls = []api.SecurityControl{}
	}
}

func cloneNode(n api.Node) api.Node {
	n.Data = maps.Clone(n.Data)
	return n
}

func cloneEdge(e api.Edge) api.Edge {
	e.Data = maps.Clone(e.Data)
	return e
}

func cloneNodes(nodes []api.Node) []api.Node {
	if nodes == nil {
		return nil
	}
	out := make([]api.Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneEdges(edges []api.Edge) []api.Edge {
	if edges == nil {
		return nil
	}
	out := make([]api.Edge, len(edges))
	for i, e := range edges {
		out[i] = cloneEdge(e)
	}
	return out
}

func cloneDiagram(d *api.Diagram) *api.Diagram {
	if d == nil {
		return nil
	}
	out := *d
	out.DiagramData = api.DiagramData{
		Nodes: cloneNodes(d.DiagramData.Nodes),
		Edges: cloneEdges(d.DiagramData.Edges),
	}
	out.Metadata = cloneMetadata(d.Metadata)
	return &out
}

func cloneScore(sc *api.Score) *api.Score {
	if sc == nil {
		return nil
	}
	out := *sc
	out.ValidationResults = slices.Clone(sc.ValidationResults)
	if sc.Feedback != nil {
		fb := *sc.Feedback
		fb.Strengths = slices.Clone(fb.Strengths)
		fb.Weaknesses = slices.Clone(fb.Weaknesses)
		fb.Recommendations = slices.Clone(fb.Recommendations)
		fb.NextSteps = slices.Clone(fb.NextSteps)
		out.Feedback = &fb
	}
	return &out
}

func cloneMetadata(m api.DiagramMetadata) api.DiagramMetadata {
	out := api.DiagramMetadata{
		TrustBoundaries:  slices.Clone(m.TrustBoundaries),
		DataFlows:        slices.Clone(m.DataFlows),
		SecurityControls: slices.Clone(m.SecurityControls),
	}
	for i := range out.TrustBoundaries {
		out.TrustBoundaries[i].Nodes = slices.Clone(out.TrustBoundaries[i].Nodes)
	}
	for i := range out.SecurityControls {
		out.SecurityControls[i].AppliedTo = slices.Clone(out.SecurityControls[i].AppliedTo)
	}
	return out
}
