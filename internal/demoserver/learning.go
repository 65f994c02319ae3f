package demoserver

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/abhisek/threatlab/internal/api"
)

func (s *Server) handleLearningPaths(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.LearningPath{}
	for _, p := range s.state.paths {
		if p.Active && (category == "" || p.Category == category) {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]api.LearningPath{"learning_paths": out})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.state.paths, func(p api.LearningPath) bool { return p.ID == id }) {
		writeDetail(w, http.StatusBadRequest, "Failed to enroll in learning path")
		return
	}
	if !slices.ContainsFunc(s.state.enrolled[uid], func(e enrollment) bool { return e.pathID == id }) {
		s.state.enrolled[uid] = append(s.state.enrolled[uid], enrollment{pathID: id, enrolledAt: time.Now().UTC()})
	}
	writeJSON(w, http.StatusOK, api.Message{Message: "Successfully enrolled in learning path"})
}

func (s *Server) handleLearningProgress(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	completed := s.state.accounts[uid].user.Progress.CompletedScenarios
	out := api.LearningProgress{
		ActivePaths:    []api.PathProgress{},
		CompletedPaths: []api.PathProgress{},
	}
	var total float64
	for _, e := range s.state.enrolled[uid] {
		idx := slices.IndexFunc(s.state.paths, func(p api.LearningPath) bool { return p.ID == e.pathID })
		if idx < 0 {
			continue
		}
		path := s.state.paths[idx]
		done := 0
		for _, scn := range path.Scenarios {
			if slices.Contains(completed, scn) {
				done++
			}
		}
		pct := 0.0
		if len(path.Scenarios) > 0 {
			pct = float64(done) / float64(len(path.Scenarios)) * 100
		}
		last := api.NewTime(e.enrolledAt)
		pp := api.PathProgress{
			PathID:               path.ID,
			PathName:             path.Name,
			CompletionPercentage: pct,
			CurrentModule:        done,
			LastActivity:         &last,
		}
		if pct >= 100 {
			out.CompletedPaths = append(out.CompletedPaths, pp)
		} else {
			out.ActivePaths = append(out.ActivePaths, pp)
		}
		out.EnrolledPaths++
		total += pct
	}
	if out.EnrolledPaths > 0 {
		out.OverallProgress = total / float64(out.EnrolledPaths)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLearningAchievements(w http.ResponseWriter, r *http.Request) {
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	awards := slices.Clone(s.state.awards[uid])
	sort.Slice(awards, func(i, j int) bool { return awards[i].earnedAt.After(awards[j].earnedAt) })

	out := api.LearningAchievements{
		EarnedBadges:       []string{},
		RecentAchievements: []api.EarnedAchievement{},
	}
	for i, a := range awards {
		out.EarnedBadges = append(out.EarnedBadges, a.badgeID)
		if i < 5 {
			t := api.NewTime(a.earnedAt)
			out.RecentAchievements = append(out.RecentAchievements, api.EarnedAchievement{
				BadgeID:     a.badgeID,
				Name:        a.name,
				Description: badgeByID(a.badgeID).Description,
				EarnedAt:    &t,
			})
		}
	}
	out.TotalEarned = len(out.EarnedBadges)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	_, limit := pagination(r.URL.Query(), 5, 20)
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.state.userScores(uid)
	out := []api.Recommendation{}
	if len(scores) == 0 {
		out = append(out,
			api.Recommendation{
				Type:        "scenario",
				Title:       "Start with Web Security Fundamentals",
				Description: "Learn basic web security concepts",
				Category:    "web",
				Difficulty:  "beginner",
				Reason:      "Perfect starting point for beginners",
			},
			api.Recommendation{
				Type:        "learning_path",
				Title:       "Security Fundamentals Path",
				Description: "Comprehensive introduction to security concepts",
				Category:    "security",
				Reason:      "Structured learning approach",
			},
		)
	} else {
		for _, area := range weakAreas(scores) {
			lower := strings.ToLower(area)
			out = append(out, api.Recommendation{
				Type:        "scenario",
				Title:       "Improve " + area + " Skills",
				Description: "Practice scenarios focused on " + lower,
				Category:    lower,
				Difficulty:  "intermediate",
				Reason:      "Your " + lower + " scores could be improved",
			})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, map[string][]api.Recommendation{"recommendations": out})
}

// weakAreas lists the categories whose average is below the passing score.
func weakAreas(scores []*api.Score) []string {
	avg := averages(scores)
	var out []string
	for _, name := range []string{"Security", "Architecture", "Performance", "Completeness"} {
		if avg[name] < passingScore {
			out = append(out, name)
		}
	}
	return out
}

func averages(scores []*api.Score) map[string]float64 {
	out := map[string]float64{}
	if len(scores) == 0 {
		return out
	}
	for _, sc := range scores {
		out["Security"] += sc.Scores.SecurityScore
		out["Architecture"] += sc.Scores.ArchitectureScore
		out["Performance"] += sc.Scores.PerformanceScore
		out["Completeness"] += sc.Scores.CompletenessScore
	}
	for k := range out {
		out[k] /= float64(len(scores))
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 90
	}
	writeJSON(w, http.StatusOK, api.Dashboard{
		UserID:             currentUserID(r),
		AnalysisPeriodDays: days,
		Analytics: api.Analytics{
			PerformanceOverview: api.PerformanceOverview{
				CurrentLevel:     "Intermediate",
				TotalScenarios:   15,
				AverageScore:     78.5,
				BestScore:        94.2,
				ImprovementRate:  12.3,
				PerformanceTrend: "improving",
			},
			SkillRadar: map[string]float64{
				"security":     82.0,
				"architecture": 76.5,
				"performance":  71.2,
				"completeness": 85.3,
				"overall":      78.8,
			},
			LearningVelocity: api.LearningVelocity{
				ScenariosPerWeek: 3.2,
				VelocityTrend:    "accelerating",
			},
			ImprovementTrends: map[string]api.ImprovementTrend{
				"security":     {EarlyAverage: 65.2, RecentAverage: 82.0, Improvement: 16.8, Trend: "improving"},
				"architecture": {EarlyAverage: 70.1, RecentAverage: 76.5, Improvement: 6.4, Trend: "improving"},
			},
		},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	_, limit := pagination(r.URL.Query(), 50, 200)
	uid := currentUserID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	points := []api.TimelinePoint{}
	scores := s.state.userScores(uid)
	if len(scores) > 0 {
		for i, sc := range scores {
			points = append(points, api.TimelinePoint{
				Date:              sc.SubmissionTime.UTC().Format(time.RFC3339),
				TotalScore:        sc.Scores.TotalScore,
				SecurityScore:     sc.Scores.SecurityScore,
				ArchitectureScore: sc.Scores.ArchitectureScore,
				PerformanceScore:  sc.Scores.PerformanceScore,
				CompletenessScore: sc.Scores.CompletenessScore,
				AttemptNumber:     i + 1,
				TimeSpentMinutes:  float64(sc.TimeSpent) / 60,
			})
		}
	} else {
		base := time.Now().UTC().AddDate(0, 0, -30)
		for i := range 15 {
			points = append(points, api.TimelinePoint{
				Date:              base.AddDate(0, 0, i*2).Format(time.RFC3339),
				TotalScore:        float64(60 + s.rng.IntN(36)),
				SecurityScore:     float64(70 + s.rng.IntN(21)),
				ArchitectureScore: float64(65 + s.rng.IntN(21)),
				PerformanceScore:  float64(60 + s.rng.IntN(21)),
				CompletenessScore: float64(75 + s.rng.IntN(21)),
				AttemptNumber:     i + 1,
				TimeSpentMinutes:  float64(15 + s.rng.IntN(31)),
			})
		}
	}
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	writeJSON(w, http.StatusOK, api.Timeline{
		UserID:        uid,
		Timeline:      points,
		TotalAttempts: len(points),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Insights{
		Insights: []string{
			"Your performance is improving consistently!",
			"Your strongest area is Completeness (85.3%)",
			"Focus on improving Performance (71.2%)",
			"You're completing scenarios efficiently!",
		},
		Recommendations: []string{
			"Practice scenarios that emphasize performance skills",
			"Try scenarios in your focus areas",
			"Review feedback from previous attempts",
		},
		FocusAreas: []string{"Performance"},
		NextSteps: []string{
			"Try scenarios in your focus areas",
			"Review feedback from previous attempts",
			"Challenge yourself with harder scenarios",
		},
		PerformanceSummary: &api.PerformanceSummary{
			TotalAttempts: 15,
			AverageScore:  78.5,
			SkillBreakdown: map[string]float64{
				"Security":     82.0,
				"Architecture": 76.5,
				"Performance":  71.2,
				"Completeness": 85.3,
			},
		},
	})
}
