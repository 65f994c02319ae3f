package demoserver

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/abhisek/threatlab/internal/api"
)

// pagination reads skip and limit, clamping limit to [1, max].
func pagination(q url.Values, defLimit, max int) (skip, limit int) {
	skip, _ = strconv.Atoi(q.Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defLimit
	}
	if limit > max {
		limit = max
	}
	return skip, limit
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}

func matchesScenario(sc *api.Scenario, q url.Values) bool {
	if !sc.Published {
		return false
	}
	if c := q.Get("category"); c != "" && sc.Category != c {
		return false
	}
	if d := q.Get("difficulty"); d != "" && sc.Difficulty != d {
		return false
	}
	for _, tag := range q["tags"] {
		if !slices.Contains(sc.Tags, tag) {
			return false
		}
	}
	if term := strings.ToLower(q.Get("search")); term != "" {
		if !strings.Contains(strings.ToLower(sc.Title), term) &&
			!strings.Contains(strings.ToLower(sc.Description), term) {
			return false
		}
	}
	return true
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, limit := pagination(q, 20, 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Scenario{}
	for _, sc := range s.state.scenarios {
		if matchesScenario(sc, q) {
			out = append(out, *sc)
		}
	}
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.state.scenario(mux.Vars(r)["id"])
	if sc == nil {
		writeDetail(w, http.StatusNotFound, "Scenario not found")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var sc api.Scenario
	if err := decodeJSON(r, &sc); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if sc.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := api.NewTime(time.Now().UTC())
	sc.ID = uuid.NewString()
	sc.CreatedAt, sc.UpdatedAt = now, now
	s.state.scenarios = append(s.state.scenarios, &sc)
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var upd api.Scenario
	if err := decodeJSON(r, &upd); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.state.scenario(mux.Vars(r)["id"])
	if sc == nil {
		writeDetail(w, http.StatusNotFound, "Scenario not found")
		return
	}
	upd.ID = sc.ID
	upd.CreatedAt = sc.CreatedAt
	upd.UpdatedAt = api.NewTime(time.Now().UTC())
	*sc = upd
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.scenarios, func(sc *api.Scenario) bool { return sc.ID == id })
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Scenario not found")
		return
	}
	s.state.scenarios = slices.Delete(s.state.scenarios, idx, idx+1)
	writeJSON(w, http.StatusOK, api.Message{Message: "Scenario deleted successfully"})
}

func (s *Server) handleScenarioProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.scenario(id) == nil {
		writeDetail(w, http.StatusNotFound, "Scenario not found")
		return
	}

	prog := api.ScenarioProgress{ScenarioID: id}
	for _, d := range s.state.diagrams {
		if d.UserID == uid && d.ScenarioID == id {
			prog.SavedDiagrams++
		}
	}
	for _, sc := range s.state.userScores(uid) {
		if sc.ScenarioID != id {
			continue
		}
		prog.Attempts++
		prog.BestScore = max(prog.BestScore, sc.Scores.TotalScore)
		if prog.LastAttempt == nil || sc.SubmissionTime.After(prog.LastAttempt.Time) {
			t := sc.SubmissionTime
			prog.LastAttempt = &t
		}
	}
	prog.Completed = prog.BestScore >= passingScore
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats := []string{}
	for _, sc := range s.state.scenarios {
		if sc.Published && !slices.Contains(cats, sc.Category) {
			cats = append(cats, sc.Category)
		}
	}
	slices.Sort(cats)
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"difficulties": {"beginner", "intermediate", "advanced", "expert"},
	})
}
