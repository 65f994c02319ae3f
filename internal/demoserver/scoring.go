package demoserver

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/abhisek/threatlab/internal/api"
)

// passingScore marks a scenario as completed.
const passingScore = 70

var cannedFindings = []api.ValidationResult{
	{
		RuleID:      "SEC001",
		RuleName:    "Missing Authentication",
		Severity:    api.SeverityError,
		Message:     "No authentication mechanism detected. All systems need user authentication.",
		Category:    api.CategorySecurity,
		ElementType: "system",
	},
	{
		RuleID:      "SEC002",
		RuleName:    "Unencrypted Communication",
		Severity:    api.SeverityWarning,
		Message:     "Found unencrypted connections. Use HTTPS/TLS for all communications.",
		Category:    api.CategorySecurity,
		ElementType: "connection",
	},
	{
		RuleID:      "ARCH001",
		RuleName:    "Separation of Concerns",
		Severity:    api.SeverityError,
		Message:     "Frontend should not connect directly to database",
		Category:    api.CategoryArchitecture,
		ElementType: "system",
	},
	{
		RuleID:      "PERF001",
		RuleName:    "Missing Load Balancer",
		Severity:    api.SeverityInfo,
		Message:     "Consider adding load balancing for scalability",
		Category:    api.CategoryPerformance,
		ElementType: "system",
	},
}

// sampleFindings returns between two and four canned findings in random
// order. Callers hold s.mu.
func (s *Server) sampleFindings() []api.ValidationResult {
	n := 2 + s.rng.IntN(3)
	perm := s.rng.Perm(len(cannedFindings))
	out := make([]api.ValidationResult, 0, n)
	for _, i := range perm[:n] {
		out = append(out, cannedFindings[i])
	}
	return out
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("diagram_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.state.diagrams[id]
	if !ok || d.UserID != currentUserID(r) {
		writeDetail(w, http.StatusBadRequest, "Diagram not found")
		return
	}
	writeJSON(w, http.StatusOK, api.ValidationResponse{
		DiagramID:         id,
		ValidationResults: s.sampleFindings(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	})
}

// breakdown deducts per finding from a perfect score and weights the
// categories with the scenario criteria.
func breakdown(results []api.ValidationResult, sc *api.Scenario, timeSpent int) api.ScoreBreakdown {
	weights := api.ScoringCriteria{
		SecurityWeight: 0.25, ArchitectureWeight: 0.25, PerformanceWeight: 0.25, CompletenessWeight: 0.25,
	}
	if sc != nil {
		weights = sc.ScoringCriteria
	}

	b := api.ScoreBreakdown{
		SecurityScore: 100, ArchitectureScore: 100, PerformanceScore: 100, CompletenessScore: 100,
	}
	for _, res := range results {
		deduction := 5.0
		switch res.Severity {
		case api.SeverityError:
			deduction = 20
		case api.SeverityWarning:
			deduction = 10
		}
		switch res.Category {
		case api.CategorySecurity:
			b.SecurityScore = max(0, b.SecurityScore-deduction)
		case api.CategoryArchitecture:
			b.ArchitectureScore = max(0, b.ArchitectureScore-deduction)
		case api.CategoryPerformance:
			b.PerformanceScore = max(0, b.PerformanceScore-deduction)
		case api.CategoryCompleteness:
			b.CompletenessScore = max(0, b.CompletenessScore-deduction)
		}
	}

	total := b.SecurityScore*weights.SecurityWeight +
		b.ArchitectureScore*weights.ArchitectureWeight +
		b.PerformanceScore*weights.PerformanceWeight +
		b.CompletenessScore*weights.CompletenessWeight
	if sc != nil && sc.TimeLimit != nil {
		limit := *sc.TimeLimit * 60
		switch {
		case float64(timeSpent) < float64(limit)*0.8:
			total *= 1.1
		case timeSpent > limit:
			total *= 0.9
		}
	}
	b.TotalScore = min(100, total)
	return b
}

func feedbackFor(results []api.ValidationResult, b api.ScoreBreakdown) *api.FeedbackReport {
	fb := &api.FeedbackReport{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
		NextSteps: []string{
			"Review the validation results",
			"Implement suggested improvements",
			"Test your updated design",
			"Try more advanced scenarios",
		},
	}
	if b.SecurityScore >= 80 {
		fb.Strengths = append(fb.Strengths, "Strong security implementation")
	} else {
		fb.Weaknesses = append(fb.Weaknesses, "Security implementation needs improvement")
		fb.Recommendations = append(fb.Recommendations, "Review authentication and encryption mechanisms")
	}
	if b.ArchitectureScore >= 80 {
		fb.Strengths = append(fb.Strengths, "Well-structured architecture")
	} else {
		fb.Weaknesses = append(fb.Weaknesses, "Architecture could be better organized")
		fb.Recommendations = append(fb.Recommendations, "Consider separation of concerns and layered architecture")
	}

	var errs, warns int
	for _, res := range results {
		switch res.Severity {
		case api.SeverityError:
			errs++
		case api.SeverityWarning:
			warns++
		}
	}
	if errs == 0 {
		fb.Strengths = append(fb.Strengths, "No critical security or architectural errors")
	}
	if warns > 0 {
		fb.Recommendations = append(fb.Recommendations, fmt.Sprintf("Address %d improvement opportunities", warns))
	}

	level := "Poor"
	switch {
	case b.TotalScore >= 90:
		level = "Excellent"
	case b.TotalScore >= 70:
		level = "Good"
	case b.TotalScore >= 50:
		level = "Needs Improvement"
	}
	fb.Summary = fmt.Sprintf("%s design with a score of %.1f/100. Found %d errors and %d warnings.",
		level, b.TotalScore, errs, warns)
	return fb
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("diagram_id")
	timeSpent, err := strconv.Atoi(q.Get("time_spent"))
	if err != nil || timeSpent < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "time_spent must be a non-negative integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.state.diagrams[id]
	if !ok || d.UserID != currentUserID(r) {
		writeDetail(w, http.StatusBadRequest, "Diagram not found")
		return
	}

	results := s.sampleFindings()
	b := breakdown(results, s.state.scenario(d.ScenarioID), timeSpent)
	score := &api.Score{
		ID:                uuid.NewString(),
		UserID:            d.UserID,
		ScenarioID:        d.ScenarioID,
		DiagramID:         d.ID,
		Scores:            b,
		TimeSpent:         timeSpent,
		SubmissionTime:    api.NewTime(time.Now().UTC()),
		ValidationResults: results,
		Feedback:          feedbackFor(results, b),
	}
	s.state.scores = append(s.state.scores, score)
	d.Status = api.StatusReviewed

	if b.TotalScore >= passingScore && d.ScenarioID != "" {
		u := &s.state.accounts[d.UserID].user
		if !slices.Contains(u.Progress.CompletedScenarios, d.ScenarioID) {
			u.Progress.CompletedScenarios = append(u.Progress.CompletedScenarios, d.ScenarioID)
		}
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, limit := pagination(q, 20, 100)
	scenarioID := q.Get("scenario_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Score{}
	for _, sc := range s.state.userScores(currentUserID(r)) {
		if scenarioID == "" || sc.ScenarioID == scenarioID {
			out = append(out, *sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionTime.After(out[j].SubmissionTime.Time)
	})
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := api.UserStats{BadgesEarned: []string{}}
	scores := s.state.userScores(uid)
	seen := map[string]bool{}
	completed := map[string]bool{}
	var sum float64
	for _, sc := range scores {
		seen[sc.ScenarioID] = true
		if sc.Scores.TotalScore >= passingScore {
			completed[sc.ScenarioID] = true
		}
		sum += sc.Scores.TotalScore
		stats.BestScore = max(stats.BestScore, sc.Scores.TotalScore)
		stats.TotalTimeSpent += sc.TimeSpent
	}
	stats.TotalScenarios = len(seen)
	stats.CompletedScenarios = len(completed)
	if len(scores) > 0 {
		stats.AverageScore = sum / float64(len(scores))
	}
	stats.CurrentStreak = streak(scores, time.Now().UTC())
	for _, a := range s.state.awards[uid] {
		stats.BadgesEarned = append(stats.BadgesEarned, a.badgeID)
	}
	writeJSON(w, http.StatusOK, stats)
}

// streak counts consecutive days with a submission, ending today.
func streak(scores []*api.Score, now time.Time) int {
	days := map[string]bool{}
	for _, sc := range scores {
		days[sc.SubmissionTime.UTC().Format(time.DateOnly)] = true
	}
	n := 0
	for d := now; days[d.Format(time.DateOnly)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var score *api.Score
	for _, sc := range s.state.scores {
		if sc.ID == id && sc.UserID == uid {
			score = sc
			break
		}
	}
	if score == nil {
		writeDetail(w, http.StatusNotFound, "Feedback not found")
		return
	}

	out := api.DetailedFeedback{Score: *score}
	out.DetailedAnalysis.ScoreBreakdown = score.Scores
	for _, res := range score.ValidationResults {
		out.DetailedAnalysis.ValidationSummary.TotalIssues++
		switch res.Severity {
		case api.SeverityError:
			out.DetailedAnalysis.ValidationSummary.Errors++
		case api.SeverityWarning:
			out.DetailedAnalysis.ValidationSummary.Warnings++
		case api.SeverityInfo:
			out.DetailedAnalysis.ValidationSummary.Info++
		}
	}
	out.DetailedAnalysis.PerformanceMetrics.TimeSpentMinutes = score.TimeSpent / 60
	out.DetailedAnalysis.PerformanceMetrics.EfficiencyRating = "Average"
	if score.TimeSpent < 1800 {
		out.DetailedAnalysis.PerformanceMetrics.EfficiencyRating = "Good"
	}
	out.ImprovementSuggestions = suggestions(score.Scores)
	writeJSON(w, http.StatusOK, out)
}

func suggestions(b api.ScoreBreakdown) []string {
	out := []string{}
	if b.SecurityScore < 70 {
		out = append(out,
			"Focus on implementing proper authentication and authorization",
			"Ensure all communications use secure protocols (HTTPS/TLS)")
	}
	if b.ArchitectureScore < 70 {
		out = append(out,
			"Review architectural patterns and separation of concerns",
			"Consider using API gateways and service layers")
	}
	if b.PerformanceScore < 70 {
		out = append(out,
			"Add load balancing and caching mechanisms",
			"Consider scalability requirements in your design")
	}
	if b.CompletenessScore < 70 {
		out = append(out,
			"Ensure all required components are included",
			"Connect all components appropriately")
	}
	return out
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, limit := pagination(q, 50, 100)
	category, difficulty := q.Get("category"), q.Get("difficulty")

	var since time.Time
	switch q.Get("timeframe") {
	case "week":
		since = time.Now().AddDate(0, 0, -7)
	case "month":
		since = time.Now().AddDate(0, -1, 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agg := map[string]*api.LeaderboardEntry{}
	for _, sc := range s.state.scores {
		if !since.IsZero() && sc.SubmissionTime.Before(since) {
			continue
		}
		if category != "" || difficulty != "" {
			scn := s.state.scenario(sc.ScenarioID)
			if scn == nil || (category != "" && scn.Category != category) ||
				(difficulty != "" && scn.Difficulty != difficulty) {
				continue
			}
		}
		e, ok := agg[sc.UserID]
		if !ok {
			e = &api.LeaderboardEntry{UserID: sc.UserID}
			if acc, found := s.state.accounts[sc.UserID]; found {
				e.UserName = acc.user.DisplayName()
			}
			agg[sc.UserID] = e
		}
		e.TotalScore += sc.Scores.TotalScore
		e.ScenariosCompleted++
	}

	out := make([]api.LeaderboardEntry, 0, len(agg))
	for _, e := range agg {
		e.AverageScore = e.TotalScore / float64(e.ScenariosCompleted)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	writeJSON(w, http.StatusOK, out)
}
