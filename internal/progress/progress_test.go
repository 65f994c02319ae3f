package progress

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/demoserver"
	"github.com/abhisek/threatlab/internal/notify"
)

type fixture struct {
	client *api.Client
	center *notify.Center
	store  *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := httptest.NewServer(demoserver.New(demoserver.Options{Seed: 7}).Handler())
	t.Cleanup(srv.Close)

	c, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	resp, err := c.Login(context.Background(), api.LoginRequest{
		Email:    demoserver.DemoEmail,
		Password: demoserver.DemoPassword,
	})
	require.NoError(t, err)
	c.SetTokenSource(api.StaticToken(resp.AccessToken))

	center := notify.NewCenter()
	return &fixture{client: c, center: center, store: New(c, center)}
}

func (f *fixture) scoreOnce(t *testing.T) *api.Score {
	t.Helper()
	ctx := context.Background()
	d, err := f.client.CreateDiagram(ctx, api.DiagramCreate{Title: "Shop", ScenarioID: "ecommerce-web"})
	require.NoError(t, err)
	s, err := f.client.Score(ctx, d.ID, 120)
	require.NoError(t, err)
	return s
}

func messages(c *notify.Center) []string {
	var out []string
	for _, n := range c.Active() {
		out = append(out, n.Message)
	}
	return out
}

func TestHistoryAndStatsAreCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	score := f.scoreOnce(t)

	hist, err := f.store.History(ctx, api.HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, hist, 1)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalTimeSpent)

	snap := f.store.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, score.ID, snap.History[0].ID)
	assert.Same(t, stats, snap.Stats)
}

func TestFeedbackIsCachedPerScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	score := f.scoreOnce(t)

	first, err := f.store.Feedback(ctx, score.ID)
	require.NoError(t, err)
	second, err := f.store.Feedback(ctx, score.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadFailureNotifiesAndKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Feedback(ctx, "missing")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Contains(t, messages(f.center), "Failed to load feedback")
	assert.Nil(t, f.store.Snapshot().Stats)
}

func TestEnrollRefreshesLearningProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paths, err := f.store.Paths(ctx, "security")
	require.NoError(t, err)
	require.Len(t, paths, 1)

	require.NoError(t, f.store.Enroll(ctx, paths[0].ID))
	snap := f.store.Snapshot()
	require.NotNil(t, snap.Learning)
	assert.Equal(t, 1, snap.Learning.EnrolledPaths)
	assert.Contains(t, messages(f.center), "Enrolled in learning path")

	err = f.store.Enroll(ctx, "no-such-path")
	require.Error(t, err)
	assert.Contains(t, messages(f.center), "Enrollment failed")
}

func TestCheckAchievementsAnnouncesNewBadges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.store.CheckAchievements(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.TotalNew)
	assert.Empty(t, messages(f.center))

	f.scoreOnce(t)
	res, err = f.store.CheckAchievements(ctx)
	require.NoError(t, err)
	require.NotZero(t, res.TotalNew)

	found := false
	for _, m := range messages(f.center) {
		if strings.HasPrefix(m, "New achievement unlocked: ") {
			assert.Contains(t, m, "First Steps")
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyticsLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Dashboard(ctx, 30)
	require.NoError(t, err)
	_, err = f.store.Timeline(ctx, 10)
	require.NoError(t, err)
	_, err = f.store.Insights(ctx)
	require.NoError(t, err)
	_, err = f.store.Achievements(ctx)
	require.NoError(t, err)
	_, err = f.store.Recommendations(ctx, 2)
	require.NoError(t, err)
	_, err = f.store.Leaderboard(ctx, api.LeaderboardOptions{})
	require.NoError(t, err)

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Timeline)
	assert.Len(t, snap.Timeline.Timeline, 10)
	assert.Equal(t, 30, snap.Dashboard.AnalysisPeriodDays)
	assert.NotNil(t, snap.Insights)
	assert.NotNil(t, snap.Achievements)
	assert.Len(t, snap.Recommendations, 2)
}
