// Package editor is the diagram editor: a component palette, a canvas and
// a properties panel over the diagram store.
//
// Node positions are edited on the canvas first and pushed into the store
// on a periodic sync tick, which also autosaves a local draft.
package editor

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/cockroachdb/errors"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/diagram"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
	"github.com/abhisek/threatlab/internal/router"
	"github.com/abhisek/threatlab/internal/screen"
	"github.com/abhisek/threatlab/internal/screens/score"
	"github.com/abhisek/threatlab/internal/screens/validation"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/ui/components"
	"github.com/abhisek/threatlab/internal/ui/layout"
)

// Options selects what the editor opens. With no DiagramID a new diagram
// is started for ScenarioID.
type Options struct {
	DiagramID  string
	ScenarioID string
	Scenario   *api.Scenario
	Title      string
}

type focus int

const (
	focusCanvas focus = iota
	focusPalette
)

type inputKind int

const (
	inputNone inputKind = iota
	inputLabel
	inputProtocol
	inputTitle
	inputBoundary
	inputControl
)

type followUp int

const (
	thenNothing followUp = iota
	thenValidate
	thenSubmit
)

type syncTickMsg struct{ gen int }

type loadedMsg struct {
	title string
	draft *diagram.Draft
	err   error
}

type savedMsg struct {
	err  error
	then followUp
}

type validatedMsg struct{ err error }

type scoredMsg struct {
	score *api.Score
	err   error
}

// EditorScreen edits one diagram.
type EditorScreen struct {
	svc     *services.Services
	opts    Options
	title   string
	now     func() time.Time
	started time.Time

	loading      bool
	loadErr      error
	pendingDraft *diagram.Draft

	focus     focus
	palette   components.Choice
	input     components.TextInput
	inputKind inputKind

	moving      bool
	connectFrom string
	// positions holds canvas moves not yet pushed into the store.
	positions map[string]api.Position

	busy     string
	retry    bool
	tickGen  int
	finished bool
}

var _ screen.Screen = (*EditorScreen)(nil)
var _ screen.KeyHintProvider = (*EditorScreen)(nil)
var _ screen.Resumer = (*EditorScreen)(nil)

// New creates an EditorScreen.
func New(svc *services.Services, opts Options) *EditorScreen {
	if opts.Scenario != nil && opts.ScenarioID == "" {
		opts.ScenarioID = opts.Scenario.ID
	}
	return &EditorScreen{
		svc:       svc,
		opts:      opts,
		title:     opts.Title,
		now:       time.Now,
		palette:   newPalette(0),
		positions: make(map[string]api.Position),
	}
}

func newPalette(selected int) components.Choice {
	opts := make([]string, len(api.NodeTypes))
	for i, t := range api.NodeTypes {
		opts[i] = nodeCode(t) + "  " + string(t)
	}
	return components.NewChoice("Components", opts, selected)
}

func (s *EditorScreen) Init() tea.Cmd {
	s.started = s.now()
	s.loading = true
	svc, opts := s.svc, s.opts
	load := func() tea.Msg {
		ctx := context.Background()
		var title string
		if opts.DiagramID != "" {
			if err := svc.Diagram.LoadDiagram(ctx, opts.DiagramID); err != nil {
				return loadedMsg{err: err}
			}
			if d := svc.Diagram.Current(); d != nil {
				title = d.Title
			}
		} else {
			svc.Diagram.ClearDiagram()
		}
		if svc.Autosaver == nil {
			return loadedMsg{title: title}
		}
		draft, err := svc.Autosaver.Load(ctx, diagram.DraftKey(opts.DiagramID, opts.ScenarioID))
		if err != nil {
			logging.Component("editor").Warnw("load draft", logging.FieldError, err)
		}
		return loadedMsg{title: title, draft: draft}
	}
	return tea.Batch(load, s.startTick())
}

// Resume restarts the sync loop when the editor is uncovered again.
func (s *EditorScreen) Resume() tea.Cmd {
	if s.finished {
		return nil
	}
	return s.startTick()
}

func (s *EditorScreen) startTick() tea.Cmd {
	s.tickGen++
	gen := s.tickGen
	return tea.Tick(s.svc.Sync(), func(time.Time) tea.Msg {
		return syncTickMsg{gen: gen}
	})
}

func (s *EditorScreen) Title() string {
	if s.title != "" {
		return s.title
	}
	return "Editor"
}

func (s *EditorScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.pendingDraft != nil:
		return []layout.KeyHint{{Key: "y", Description: "Restore draft"}, {Key: "n", Description: "Discard"}}
	case s.inputKind != inputNone:
		return []layout.KeyHint{{Key: "Enter", Description: "Apply"}, {Key: "Esc", Description: "Cancel"}}
	case s.focus == focusPalette:
		return []layout.KeyHint{{Key: "↑↓", Description: "Choose"}, {Key: "Enter", Description: "Add"}, {Key: "Esc", Description: "Canvas"}}
	case s.moving:
		return []layout.KeyHint{{Key: "←↑↓→", Description: "Move"}, {Key: "m/Esc", Description: "Done"}}
	}
	return []layout.KeyHint{
		{Key: "a", Description: "Add"},
		{Key: "←→", Description: "Select"},
		{Key: "m", Description: "Move"},
		{Key: "c", Description: "Connect"},
		{Key: "x", Description: "Delete"},
		{Key: "Ctrl+S", Description: "Save"},
		{Key: "v", Description: "Validate"},
		{Key: "Ctrl+G", Description: "Submit"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *EditorScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case syncTickMsg:
		if msg.gen != s.tickGen || s.finished {
			return s, nil
		}
		s.sync(false)
		return s, s.startTick()

	case loadedMsg:
		s.loading = false
		s.loadErr = msg.err
		if msg.err != nil {
			return s, nil
		}
		if s.title == "" {
			s.title = msg.title
		}
		if s.title == "" && s.opts.Scenario != nil {
			s.title = s.opts.Scenario.Title + " model"
		}
		if msg.draft != nil && (len(msg.draft.Nodes) > 0 || len(msg.draft.Edges) > 0) {
			s.pendingDraft = msg.draft
		}
		return s, nil

	case savedMsg:
		s.busy = ""
		if msg.err != nil {
			return s, nil
		}
		switch msg.then {
		case thenValidate:
			return s, s.validate()
		case thenSubmit:
			return s, s.submit()
		}
		return s, nil

	case validatedMsg:
		s.busy = ""
		if msg.err != nil {
			return s, nil
		}
		return s, router.Push(validation.New(s.svc, s.opts.Scenario))

	case scoredMsg:
		s.busy = ""
		if msg.err != nil {
			var perr *diagram.PartialSubmitError
			s.retry = errors.As(msg.err, &perr)
			return s, nil
		}
		s.retry = false
		return s, router.Push(score.New(s.svc, msg.score, s.opts.Scenario))

	case tea.KeyMsg:
		if s.loading || s.busy != "" {
			return s, nil
		}
		if s.loadErr != nil {
			if msg.String() == "esc" {
				return s, s.leave()
			}
			return s, nil
		}
		switch {
		case s.pendingDraft != nil:
			return s, s.updateDraftPrompt(msg)
		case s.inputKind != inputNone:
			return s, s.updateInput(msg)
		case s.focus == focusPalette:
			return s, s.updatePalette(msg)
		case s.moving:
			return s, s.updateMove(msg)
		}
		return s, s.updateCanvas(msg)
	}
	return s, nil
}

func (s *EditorScreen) updateDraftPrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y":
		s.svc.Diagram.RestoreDraft(*s.pendingDraft)
		s.pendingDraft = nil
		s.svc.Notifier.Notify(notify.LevelInfo, "Draft restored")
	case "n", "esc":
		s.pendingDraft = nil
		return s.discardDraft(s.draftKey())
	}
	return nil
}

func (s *EditorScreen) updatePalette(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "tab":
		s.focus = focusCanvas
		return nil
	}
	s.palette, _ = s.palette.Update(msg)
	if !s.palette.Submitted {
		return nil
	}
	t := api.NodeTypes[s.palette.Chosen]
	n := s.svc.Diagram.NewNode(t, s.freeSpot(), defaultLabel(t))
	s.svc.Diagram.Select(n.ID)
	s.palette = newPalette(s.palette.Chosen)
	s.focus = focusCanvas
	return nil
}

func (s *EditorScreen) updateMove(msg tea.KeyMsg) tea.Cmd {
	id := s.svc.Diagram.Selected()
	pos, ok := s.position(id)
	if !ok {
		s.moving = false
		return nil
	}
	switch msg.String() {
	case "esc", "m", "enter":
		s.moving = false
		s.sync(false)
		return nil
	case "left", "h":
		pos.X -= pxPerCol
	case "right", "l":
		pos.X += pxPerCol
	case "up", "k":
		pos.Y -= pxPerRow
	case "down", "j":
		pos.Y += pxPerRow
	default:
		return nil
	}
	pos.X = max(pos.X, 0)
	pos.Y = max(pos.Y, 0)
	s.positions[id] = pos
	return nil
}

func (s *EditorScreen) updateCanvas(msg tea.KeyMsg) tea.Cmd {
	d := s.svc.Diagram
	sel := d.Selected()
	node, isNode := s.node(sel)
	edge, isEdge := s.edge(sel)

	switch msg.String() {
	case "esc":
		if s.connectFrom != "" {
			s.connectFrom = ""
			return nil
		}
		return s.leave()
	case "tab", "a":
		s.focus = focusPalette
	case "right", "l", "down", "j":
		s.step(1)
	case "left", "h", "up", "k":
		s.step(-1)
	case "m":
		if isNode {
			s.moving = true
		}
	case "c":
		switch {
		case !isNode:
		case s.connectFrom == "":
			s.connectFrom = node.ID
		case s.connectFrom == node.ID:
			s.connectFrom = ""
		default:
			e := d.Connect(s.connectFrom, node.ID)
			s.connectFrom = ""
			d.Select(e.ID)
		}
	case "x", "delete", "backspace":
		switch {
		case isNode:
			delete(s.positions, node.ID)
			d.RemoveNode(node.ID)
		case isEdge:
			d.RemoveEdge(edge.ID)
		}
	case "r":
		switch {
		case isNode:
			return s.startInput(inputLabel, node.Label())
		case isEdge:
			label, _ := edge.Data[api.DataLabel].(string)
			return s.startInput(inputLabel, label)
		}
	case "p":
		if isEdge {
			return s.startInput(inputProtocol, edge.Protocol())
		}
	case "e":
		if isEdge {
			d.SetEdgeProperty(edge.ID, api.DataEncrypted, !edge.Encrypted())
		}
	case "f":
		if isEdge {
			s.addDataFlow(edge)
		}
	case "b":
		if isNode {
			return s.startInput(inputBoundary, "")
		}
	case "s":
		if isNode {
			return s.startInput(inputControl, "")
		}
	case "T":
		return s.startInput(inputTitle, s.title)
	case "ctrl+s":
		return s.save(thenNothing)
	case "v":
		return s.validate()
	case "ctrl+g":
		return s.submit()
	}
	return nil
}

func (s *EditorScreen) startInput(kind inputKind, value string) tea.Cmd {
	s.inputKind = kind
	s.input = components.NewTextInput(inputPrompt(kind), 120)
	s.input.SetValue(value)
	return s.input.Init()
}

func inputPrompt(kind inputKind) string {
	switch kind {
	case inputProtocol:
		return "protocol, e.g. https"
	case inputTitle:
		return "diagram title"
	case inputBoundary:
		return "trust boundary name"
	case inputControl:
		return "security control, e.g. WAF"
	default:
		return "label"
	}
}

func (s *EditorScreen) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.inputKind = inputNone
		return nil
	case "enter":
		s.applyInput(s.input.Value())
		s.inputKind = inputNone
		return nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

func (s *EditorScreen) applyInput(value string) {
	d := s.svc.Diagram
	sel := d.Selected()
	switch s.inputKind {
	case inputLabel:
		if _, ok := s.node(sel); ok {
			d.SetNodeProperty(sel, api.DataLabel, value)
		} else if _, ok := s.edge(sel); ok {
			d.SetEdgeProperty(sel, api.DataLabel, value)
		}
	case inputProtocol:
		d.SetEdgeProperty(sel, api.DataProtocol, value)
	case inputTitle:
		if value != "" {
			s.title = value
		}
	case inputBoundary:
		if value == "" {
			return
		}
		d.AddTrustBoundary(api.TrustBoundary{Name: value, Nodes: []string{sel}})
	case inputControl:
		if value == "" {
			return
		}
		d.AddSecurityControl(api.SecurityControl{Name: value, Type: "control", AppliedTo: []string{sel}})
	}
}

func (s *EditorScreen) addDataFlow(e api.Edge) {
	name, _ := e.Data[api.DataLabel].(string)
	if name == "" {
		name = s.label(e.Source) + " → " + s.label(e.Target)
	}
	s.svc.Diagram.AddDataFlow(api.DataFlow{
		Name:       name,
		SourceNode: e.Source,
		TargetNode: e.Target,
		DataType:   "application",
		Encryption: e.Encrypted(),
		Protocol:   e.Protocol(),
	})
	s.svc.Notifier.Notify(notify.LevelInfo, "Data flow added: "+name)
}

// step moves the selection through nodes, then edges.
func (s *EditorScreen) step(delta int) {
	ids := s.selectable()
	if len(ids) == 0 {
		return
	}
	cur := -1
	for i, id := range ids {
		if id == s.svc.Diagram.Selected() {
			cur = i
		}
	}
	next := cur + delta
	if cur < 0 {
		next = 0
	}
	next = ((next % len(ids)) + len(ids)) % len(ids)
	s.svc.Diagram.Select(ids[next])
}

func (s *EditorScreen) selectable() []string {
	var ids []string
	for _, n := range s.svc.Diagram.Nodes() {
		ids = append(ids, n.ID)
	}
	for _, e := range s.svc.Diagram.Edges() {
		ids = append(ids, e.ID)
	}
	return ids
}

func (s *EditorScreen) node(id string) (api.Node, bool) {
	if id == "" {
		return api.Node{}, false
	}
	for _, n := range s.svc.Diagram.Nodes() {
		if n.ID == id {
			return n, true
		}
	}
	return api.Node{}, false
}

func (s *EditorScreen) edge(id string) (api.Edge, bool) {
	if id == "" {
		return api.Edge{}, false
	}
	for _, e := range s.svc.Diagram.Edges() {
		if e.ID == id {
			return e, true
		}
	}
	return api.Edge{}, false
}

func (s *EditorScreen) label(nodeID string) string {
	if n, ok := s.node(nodeID); ok {
		return n.Label()
	}
	return nodeID
}

// position returns the canvas position of a node, preferring unsynced moves.
func (s *EditorScreen) position(id string) (api.Position, bool) {
	if p, ok := s.positions[id]; ok {
		return p, true
	}
	n, ok := s.node(id)
	return n.Position, ok
}

// freeSpot returns a grid position for the next new node.
func (s *EditorScreen) freeSpot() api.Position {
	n := len(s.svc.Diagram.Nodes())
	return api.Position{
		X: float64(n%4) * 20 * pxPerCol,
		Y: float64(n/4) * 2 * pxPerRow,
	}
}

func defaultLabel(t api.NodeType) string {
	switch t {
	case api.NodeLoadBalancer:
		return "Load Balancer"
	case api.NodeAPI:
		return "API"
	default:
		s := string(t)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// sync pushes canvas moves into the store and autosaves a draft when there
// are unsaved changes. force skips the autosave throttle.
func (s *EditorScreen) sync(force bool) {
	for id, pos := range s.positions {
		p := pos
		s.svc.Diagram.UpdateNode(id, diagram.NodePatch{Position: &p})
	}
	clear(s.positions)

	if s.svc.Autosaver == nil || !s.svc.Diagram.Dirty() {
		return
	}
	ctx := context.Background()
	draft := s.svc.Diagram.Draft()
	var err error
	if force {
		err = s.svc.Autosaver.Save(ctx, s.draftKey(), s.title, s.opts.ScenarioID, draft)
	} else {
		_, err = s.svc.Autosaver.MaybeSave(ctx, s.draftKey(), s.title, s.opts.ScenarioID, draft)
	}
	if err != nil {
		logging.Component("editor").Warnw("autosave draft", logging.FieldError, err)
	}
}

func (s *EditorScreen) draftKey() string {
	id := s.opts.DiagramID
	if d := s.svc.Diagram.Current(); d != nil {
		id = d.ID
	}
	return diagram.DraftKey(id, s.opts.ScenarioID)
}

func (s *EditorScreen) discardDraft(key string) tea.Cmd {
	a := s.svc.Autosaver
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.Discard(context.Background(), key); err != nil {
			logging.Component("editor").Warnw("discard draft", logging.FieldError, err)
		}
		return nil
	}
}

func (s *EditorScreen) leave() tea.Cmd {
	s.sync(true)
	s.finished = true
	if s.svc.Diagram.Dirty() && s.svc.Autosaver != nil {
		s.svc.Notifier.Notify(notify.LevelInfo, "Unsaved changes kept as a local draft")
	}
	return router.Pop
}

func (s *EditorScreen) persisted() bool {
	d := s.svc.Diagram.Current()
	return d != nil && d.ID != ""
}

func (s *EditorScreen) save(then followUp) tea.Cmd {
	s.sync(false)
	s.busy = "Saving..."
	svc, title, scenarioID := s.svc, s.title, s.opts.ScenarioID
	oldKey := s.draftKey()
	return func() tea.Msg {
		ctx := context.Background()
		d, err := svc.Diagram.SaveDiagram(ctx, title, scenarioID)
		if err == nil && svc.Autosaver != nil {
			for _, key := range []string{oldKey, diagram.DraftKey(d.ID, scenarioID)} {
				if derr := svc.Autosaver.Discard(ctx, key); derr != nil {
					logging.Component("editor").Warnw("discard draft", logging.FieldError, derr)
				}
			}
		}
		return savedMsg{err: err, then: then}
	}
}

func (s *EditorScreen) validate() tea.Cmd {
	s.sync(false)
	if !s.persisted() || s.svc.Diagram.Dirty() {
		return s.save(thenValidate)
	}
	s.busy = "Validating..."
	d := s.svc.Diagram
	return func() tea.Msg {
		return validatedMsg{err: d.ValidateDiagram(context.Background())}
	}
}

func (s *EditorScreen) submit() tea.Cmd {
	s.sync(false)
	if len(s.svc.Diagram.Nodes()) == 0 {
		s.svc.Notifier.Notify(notify.LevelWarning, "Add some components before submitting")
		return nil
	}
	if !s.persisted() || s.svc.Diagram.Dirty() {
		return s.save(thenSubmit)
	}
	s.busy = "Scoring..."
	d := s.svc.Diagram
	spent := int(s.now().Sub(s.started).Seconds())
	return func() tea.Msg {
		sc, err := d.SubmitForScoring(context.Background(), spent)
		return scoredMsg{score: sc, err: err}
	}
}
