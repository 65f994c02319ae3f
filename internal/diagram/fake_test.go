package diagram

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/notify"
)

// fakeRemote is an in-memory Remote that records every call.
type fakeRemote struct {
	mu       sync.Mutex
	diagrams map[string]*api.Diagram
	nextID   int

	results []api.ValidationResult

	validateErr error
	submitErr   error
	scoreErr    error
	saveErr     error

	calls []string

	// When release is set, Validate and UpdateDiagram signal entered and
	// block until release is closed.
	entered chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{diagrams: make(map[string]*api.Diagram)}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

// gate makes the next Validate or UpdateDiagram block until the returned
// func is called. It returns once the call is in flight.
func (f *fakeRemote) gate() (inFlight <-chan struct{}, unblock func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entered, release := make(chan struct{}, 1), make(chan struct{})
	f.entered, f.release = entered, release
	return entered, func() { close(release) }
}

func (f *fakeRemote) hold() {
	f.mu.Lock()
	entered, release := f.entered, f.release
	f.entered, f.release = nil, nil
	f.mu.Unlock()
	if release == nil {
		return
	}
	entered <- struct{}{}
	<-release
}

func (f *fakeRemote) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeRemote) GetDiagram(_ context.Context, id string) (*api.Diagram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get " + id)
	d, ok := f.diagrams[id]
	if !ok {
		return nil, &api.StatusError{StatusCode: 404, Detail: "Diagram not found"}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) CreateDiagram(_ context.Context, in api.DiagramCreate) (*api.Diagram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.nextID++
	d := &api.Diagram{
		ID:          fmt.Sprintf("srv-%d", f.nextID),
		ScenarioID:  in.ScenarioID,
		Title:       in.Title,
		DiagramData: in.DiagramData,
		Metadata:    in.Metadata,
		Status:      api.StatusDraft,
		Version:     1,
	}
	f.diagrams[d.ID] = d
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) UpdateDiagram(_ context.Context, id string, upd api.DiagramUpdate) (*api.Diagram, error) {
	f.hold()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update " + id)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	d, ok := f.diagrams[id]
	if !ok {
		return nil, &api.StatusError{StatusCode: 404}
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.DiagramData != nil {
		d.DiagramData = *upd.DiagramData
	}
	if upd.Metadata != nil {
		d.Metadata = *upd.Metadata
	}
	d.Version++
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) SubmitDiagram(_ context.Context, id string) (*api.Diagram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("submit " + id)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	d := f.diagrams[id]
	d.Status = api.StatusSubmitted
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) Validate(_ context.Context, id string) (*api.ValidationResponse, error) {
	f.hold()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("validate " + id)
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return &api.ValidationResponse{DiagramID: id, ValidationResults: f.results}, nil
}

func (f *fakeRemote) Score(_ context.Context, id string, timeSpent int) (*api.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("score %s %d", id, timeSpent))
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	return &api.Score{
		ID:        "score-" + id,
		DiagramID: id,
		TimeSpent: timeSpent,
		Scores:    api.ScoreBreakdown{TotalScore: 80},
	}, nil
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	levels []notify.Level
	msgs   []string
}

func (r *recordingNotifier) Notify(level notify.Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) Error(msg string, _ error) {
	r.Notify(notify.LevelError, msg)
}

func (r *recordingNotifier) errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.levels {
		if l == notify.LevelError {
			n++
		}
	}
	return n
}
