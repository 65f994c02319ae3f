package demoserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/abhisek/threatlab/internal/api"
)

// ownedDiagram looks up a diagram and writes 404 or 403 when the caller
// cannot see it. Callers hold s.mu.
func (s *Server) ownedDiagram(w http.ResponseWriter, r *http.Request, id string) *api.Diagram {
	d, ok := s.state.diagrams[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Diagram not found")
		return nil
	}
	if d.UserID != currentUserID(r) {
		writeDetail(w, http.StatusForbidden, "Access denied")
		return nil
	}
	return d
}

func normalizeDiagram(d *api.Diagram) {
	if d.DiagramData.Nodes == nil {
		d.DiagramData.Nodes = []api.Node{}
	}
	if d.DiagramData.Edges == nil {
		d.DiagramData.Edges = []api.Edge{}
	}
	if d.Metadata.TrustBoundaries == nil {
		d.Metadata.TrustBoundaries = []api.TrustBoundary{}
	}
	if d.Metadata.DataFlows == nil {
		d.Metadata.DataFlows = []api.DataFlow{}
	}
	if d.Metadata.SecurityControls == nil {
		d.Metadata.SecurityControls = []api.SecurityControl{}
	}
}

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, limit := pagination(q, 100, 1000)
	uid := currentUserID(r)
	scenarioID := q.Get("scenario_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Diagram{}
	for _, d := range s.state.diagrams {
		if d.UserID != uid || (scenarioID != "" && d.ScenarioID != scenarioID) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt.Time)
	})
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.ownedDiagram(w, r, mux.Vars(r)["id"]); d != nil {
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) handleCreateDiagram(w http.ResponseWriter, r *http.Request) {
	var req api.DiagramCreate
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if req.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := api.NewTime(time.Now().UTC())
	d := &api.Diagram{
		ID:          uuid.NewString(),
		UserID:      currentUserID(r),
		ScenarioID:  req.ScenarioID,
		Title:       req.Title,
		DiagramData: req.DiagramData,
		Metadata:    req.Metadata,
		Status:      api.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	normalizeDiagram(d)
	s.state.diagrams[d.ID] = d
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDiagram(w http.ResponseWriter, r *http.Request) {
	var upd api.DiagramUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ownedDiagram(w, r, mux.Vars(r)["id"])
	if d == nil {
		return
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
	normalizeDiagram(d)
	d.Version++
	d.UpdatedAt = api.NewTime(time.Now().UTC())
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ownedDiagram(w, r, mux.Vars(r)["id"])
	if d == nil {
		return
	}
	delete(s.state.diagrams, d.ID)
	writeJSON(w, http.StatusOK, api.Message{Message: "Diagram deleted successfully"})
}

func (s *Server) handleSubmitDiagram(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ownedDiagram(w, r, mux.Vars(r)["id"])
	if d == nil {
		return
	}
	d.Status = api.StatusSubmitted
	d.UpdatedAt = api.NewTime(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Diagram submitted successfully",
		"diagram": d,
	})
}

func (s *Server) handleDuplicateDiagram(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.ownedDiagram(w, r, mux.Vars(r)["id"])
	if src == nil {
		return
	}
	now := api.NewTime(time.Now().UTC())
	cp := *src
	cp.ID = uuid.NewString()
	cp.Title = src.Title + " (Copy)"
	cp.Status = api.StatusDraft
	cp.Version = 1
	cp.CreatedAt, cp.UpdatedAt = now, now
	cp.DiagramData.Nodes = append([]api.Node(nil), src.DiagramData.Nodes...)
	cp.DiagramData.Edges = append([]api.Edge(nil), src.DiagramData.Edges...)
	normalizeDiagram(&cp)
	s.state.diagrams[cp.ID] = &cp
	writeJSON(w, http.StatusOK, cp)
}
