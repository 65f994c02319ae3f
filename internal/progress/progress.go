// Package progress fetches and holds the user's scores, learning paths,
// achievements and analytics.
package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
)

// Remote is the subset of the API client the progress store uses.
type Remote interface {
	ScoreHistory(ctx context.Context, opts api.HistoryOptions) ([]api.Score, error)
	UserStats(ctx context.Context) (*api.UserStats, error)
	Feedback(ctx context.Context, scoreID string) (*api.DetailedFeedback, error)
	Leaderboard(ctx context.Context, opts api.LeaderboardOptions) ([]api.LeaderboardEntry, error)
	LearningPaths(ctx context.Context, category string) ([]api.LearningPath, error)
	EnrollPath(ctx context.Context, pathID string) (*api.Message, error)
	LearningProgress(ctx context.Context) (*api.LearningProgress, error)
	Recommendations(ctx context.Context, limit int) ([]api.Recommendation, error)
	Achievements(ctx context.Context) (*api.Achievements, error)
	CheckAchievements(ctx context.Context) (*api.AchievementCheck, error)
	Dashboard(ctx context.Context, days int) (*api.Dashboard, error)
	PerformanceTimeline(ctx context.Context, limit int) (*api.Timeline, error)
	LearningInsights(ctx context.Context) (*api.Insights, error)
}

// Snapshot is every payload the store has cached. Nil or empty fields have
// not been loaded.
type Snapshot struct {
	History         []api.Score
	Stats           *api.UserStats
	Leaderboard     []api.LeaderboardEntry
	Paths           []api.LearningPath
	Learning        *api.LearningProgress
	Recommendations []api.Recommendation
	Achievements    *api.Achievements
	Dashboard       *api.Dashboard
	Timeline        *api.Timeline
	Insights        *api.Insights
}

// Store caches the last successful payload of each endpoint.
type Store struct {
	remote   Remote
	notifier notify.Notifier
	log      *zap.SugaredLogger

	mu       sync.Mutex
	snap     Snapshot
	feedback map[string]*api.DetailedFeedback
}

// New creates an empty store. A nil notifier discards notifications.
func New(remote Remote, n notify.Notifier) *Store {
	if n == nil {
		n = notify.Discard{}
	}
	return &Store{
		remote:   remote,
		notifier: n,
		log:      logging.Component("progress"),
		feedback: make(map[string]*api.DetailedFeedback),
	}
}

// Snapshot returns the cached payloads.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// load runs fetch, caches the result with set on success, and reports
// failures.
func load[T any](s *Store, ctx context.Context, what string, fetch func(context.Context) (T, error), set func(T)) (T, error) {
	v, err := fetch(ctx)
	if err != nil {
		s.log.Warnw("load failed", "what", what, logging.FieldError, err)
		s.notifier.Error("Failed to load "+what, err)
		var zero T
		return zero, err
	}
	s.mu.Lock()
	set(v)
	s.mu.Unlock()
	return v, nil
}

func (s *Store) History(ctx context.Context, opts api.HistoryOptions) ([]api.Score, error) {
	return load(s, ctx, "score history",
		func(ctx context.Context) ([]api.Score, error) { return s.remote.ScoreHistory(ctx, opts) },
		func(v []api.Score) { s.snap.History = v })
}

func (s *Store) Stats(ctx context.Context) (*api.UserStats, error) {
	return load(s, ctx, "statistics", s.remote.UserStats,
		func(v *api.UserStats) { s.snap.Stats = v })
}

// Feedback returns the detailed feedback of a score, cached per score id.
func (s *Store) Feedback(ctx context.Context, scoreID string) (*api.DetailedFeedback, error) {
	s.mu.Lock()
	fb, ok := s.feedback[scoreID]
	s.mu.Unlock()
	if ok {
		return fb, nil
	}
	return load(s, ctx, "feedback",
		func(ctx context.Context) (*api.DetailedFeedback, error) { return s.remote.Feedback(ctx, scoreID) },
		func(v *api.DetailedFeedback) { s.feedback[scoreID] = v })
}

func (s *Store) Leaderboard(ctx context.Context, opts api.LeaderboardOptions) ([]api.LeaderboardEntry, error) {
	return load(s, ctx, "leaderboard",
		func(ctx context.Context) ([]api.LeaderboardEntry, error) { return s.remote.Leaderboard(ctx, opts) },
		func(v []api.LeaderboardEntry) { s.snap.Leaderboard = v })
}

func (s *Store) Paths(ctx context.Context, category string) ([]api.LearningPath, error) {
	return load(s, ctx, "learning paths",
		func(ctx context.Context) ([]api.LearningPath, error) { return s.remote.LearningPaths(ctx, category) },
		func(v []api.LearningPath) { s.snap.Paths = v })
}

// Enroll enrolls the user in a learning path and refreshes learning
// progress.
func (s *Store) Enroll(ctx context.Context, pathID string) error {
	if _, err := s.remote.EnrollPath(ctx, pathID); err != nil {
		s.log.Warnw("enroll failed", "path", pathID, logging.FieldError, err)
		s.notifier.Error("Enrollment failed", err)
		return err
	}
	s.notifier.Notify(notify.LevelSuccess, "Enrolled in learning path")
	_, err := s.LearningProgress(ctx)
	return err
}

func (s *Store) LearningProgress(ctx context.Context) (*api.LearningProgress, error) {
	return load(s, ctx, "learning progress", s.remote.LearningProgress,
		func(v *api.LearningProgress) { s.snap.Learning = v })
}

func (s *Store) Recommendations(ctx context.Context, limit int) ([]api.Recommendation, error) {
	return load(s, ctx, "recommendations",
		func(ctx context.Context) ([]api.Recommendation, error) { return s.remote.Recommendations(ctx, limit) },
		func(v []api.Recommendation) { s.snap.Recommendations = v })
}

func (s *Store) Achievements(ctx context.Context) (*api.Achievements, error) {
	return load(s, ctx, "achievements", s.remote.Achievements,
		func(v *api.Achievements) { s.snap.Achievements = v })
}

// CheckAchievements asks the backend to award new badges and announces
// any that were awarded.
func (s *Store) CheckAchievements(ctx context.Context) (*api.AchievementCheck, error) {
	res, err := s.remote.CheckAchievements(ctx)
	if err != nil {
		s.log.Warnw("check achievements failed", logging.FieldError, err)
		s.notifier.Error("Achievement check failed", err)
		return nil, err
	}
	if len(res.NewAchievements) > 0 {
		names := make([]string, len(res.NewAchievements))
		for i, a := range res.NewAchievements {
			names[i] = a.Name
		}
		s.notifier.Notify(notify.LevelSuccess,
			fmt.Sprintf("New achievement unlocked: %s", strings.Join(names, ", ")))
	}
	return res, nil
}

func (s *Store) Dashboard(ctx context.Context, days int) (*api.Dashboard, error) {
	return load(s, ctx, "dashboard",
		func(ctx context.Context) (*api.Dashboard, error) { return s.remote.Dashboard(ctx, days) },
		func(v *api.Dashboard) { s.snap.Dashboard = v })
}

func (s *Store) Timeline(ctx context.Context, limit int) (*api.Timeline, error) {
	return load(s, ctx, "performance timeline",
		func(ctx context.Context) (*api.Timeline, error) { return s.remote.PerformanceTimeline(ctx, limit) },
		func(v *api.Timeline) { s.snap.Timeline = v })
}

func (s *Store) Insights(ctx context.Context) (*api.Insights, error) {
	return load(s, ctx, "learning insights", s.remote.LearningInsights,
		func(v *api.Insights) { s.snap.Insights = v })
}
