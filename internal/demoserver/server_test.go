package demoserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
)

func newTestServer(t *testing.T) (*httptest.Server, *api.Client) {
	t.Helper()
	srv := httptest.NewServer(New(Options{Seed: 42}).Handler())
	t.Cleanup(srv.Close)

	c, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return srv, c
}

func login(t *testing.T, c *api.Client) *api.AuthResponse {
	t.Helper()
	resp, err := c.Login(context.Background(), api.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	require.NoError(t, err)
	c.SetTokenSource(api.StaticToken(resp.AccessToken))
	return resp
}

func TestLoginAndVerify(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Login(ctx, api.LoginRequest{Email: DemoEmail, Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	resp := login(t, c)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "Demo User", resp.User.DisplayName())

	v, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, resp.User.ID, v.User.ID)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.ListScenarios(context.Background(), api.ScenarioFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	require.NoError(t, c.Logout(ctx, ""))
	_, err := c.Profile(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLogoutWithExplicitToken(t *testing.T) {
	srv, c := newTestServer(t)
	ctx := context.Background()
	resp := login(t, c)

	anon, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	require.NoError(t, anon.Logout(ctx, resp.AccessToken))

	_, err = c.Profile(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	resp, err := c.Register(ctx, api.RegisterRequest{Email: "new@example.com", Password: "secret1", FirstName: "New"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = c.Register(ctx, api.RegisterRequest{Email: "new@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))
}

func TestUpdateProfile(t *testing.T) {
	_, c := newTestServer(t)
	login(t, c)

	first, theme := "Ada", "light"
	u, err := c.UpdateProfile(context.Background(), api.ProfileUpdate{FirstName: &first, Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Profile.FirstName)
	assert.Equal(t, "User", u.Profile.LastName)
	assert.Equal(t, "light", u.Preferences.Theme)
}

func TestScenarioFiltersAndFacets(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	all, err := c.ListScenarios(ctx, api.ScenarioFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	web, err := c.ListScenarios(ctx, api.ScenarioFilter{Category: "web"})
	require.NoError(t, err)
	require.Len(t, web, 1)
	assert.Equal(t, "E-commerce Web Application", web[0].Title)
	require.NotNil(t, web[0].TimeLimit)
	assert.Equal(t, 45, *web[0].TimeLimit)

	tagged, err := c.ListScenarios(ctx, api.ScenarioFilter{Tags: []string{"microservices", "scalability"}})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "microservices-api", tagged[0].ID)

	searched, err := c.ListScenarios(ctx, api.ScenarioFilter{Search: "CLOUD"})
	require.NoError(t, err)
	require.Len(t, searched, 1)

	paged, err := c.ListScenarios(ctx, api.ScenarioFilter{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	cats, err := c.ScenarioCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "cloud", "web"}, cats)

	diffs, err := c.ScenarioDifficulties(ctx)
	require.NoError(t, err)
	assert.Contains(t, diffs, "expert")

	_, err = c.GetScenario(ctx, "missing")
	assert.True(t, api.IsNotFound(err))
}

func TestDiagramLifecycle(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	d, err := c.CreateDiagram(ctx, api.DiagramCreate{
		Title:      "Shop",
		ScenarioID: "ecommerce-web",
		DiagramData: api.DiagramData{Nodes: []api.Node{
			{ID: "n1", Type: api.NodeFrontend, Data: map[string]any{"label": "Web"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, api.StatusDraft, d.Status)
	assert.Equal(t, 1, d.Version)
	assert.NotNil(t, d.DiagramData.Edges)

	title := "Shop v2"
	d, err = c.UpdateDiagram(ctx, d.ID, api.DiagramUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Shop v2", d.Title)
	assert.Equal(t, 2, d.Version)
	assert.Len(t, d.DiagramData.Nodes, 1)

	dup, err := c.DuplicateDiagram(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shop v2 (Copy)", dup.Title)
	assert.NotEqual(t, d.ID, dup.ID)

	list, err := c.ListDiagrams(ctx, api.DiagramListOptions{ScenarioID: "ecommerce-web"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	sub, err := c.SubmitDiagram(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusSubmitted, sub.Status)

	require.NoError(t, c.DeleteDiagram(ctx, dup.ID))
	_, err = c.GetDiagram(ctx, dup.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestDiagramAccessIsPerUser(t *testing.T) {
	srv, owner := newTestServer(t)
	ctx := context.Background()
	login(t, owner)

	d, err := owner.CreateDiagram(ctx, api.DiagramCreate{Title: "Private"})
	require.NoError(t, err)

	other, err := api.New(api.Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	reg, err := other.Register(ctx, api.RegisterRequest{Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)
	other.SetTokenSource(api.StaticToken(reg.AccessToken))

	_, err = other.GetDiagram(ctx, d.ID)
	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))

	list, err := other.ListDiagrams(ctx, api.DiagramListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestValidateAndScore(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	d, err := c.CreateDiagram(ctx, api.DiagramCreate{Title: "Shop", ScenarioID: "ecommerce-web"})
	require.NoError(t, err)

	v, err := c.Validate(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, v.DiagramID)
	assert.GreaterOrEqual(t, len(v.ValidationResults), 2)
	assert.LessOrEqual(t, len(v.ValidationResults), 4)

	_, err = c.Validate(ctx, "nope")
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	score, err := c.Score(ctx, d.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, "ecommerce-web", score.ScenarioID)
	assert.LessOrEqual(t, score.Scores.TotalScore, 100.0)
	assert.Greater(t, score.Scores.TotalScore, 0.0)
	require.NotNil(t, score.Feedback)
	assert.NotEmpty(t, score.Feedback.Summary)

	got, err := c.GetDiagram(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusReviewed, got.Status)

	history, err := c.ScoreHistory(ctx, api.HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, score.ID, history[0].ID)

	fb, err := c.Feedback(ctx, score.ID)
	require.NoError(t, err)
	assert.Equal(t, len(score.ValidationResults), fb.DetailedAnalysis.ValidationSummary.TotalIssues)
	assert.Equal(t, 10, fb.DetailedAnalysis.PerformanceMetrics.TimeSpentMinutes)
	assert.Equal(t, "Good", fb.DetailedAnalysis.PerformanceMetrics.EfficiencyRating)

	stats, err := c.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalScenarios)
	assert.Equal(t, 600, stats.TotalTimeSpent)
	assert.Equal(t, 1, stats.CurrentStreak)

	progress, err := c.ScenarioProgress(ctx, "ecommerce-web")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Attempts)
	assert.Equal(t, 1, progress.SavedDiagrams)
	assert.InDelta(t, score.Scores.TotalScore, progress.BestScore, 0.001)

	board, err := c.Leaderboard(ctx, api.LeaderboardOptions{Category: "web"})
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "Demo User", board[0].UserName)

	empty, err := c.Leaderboard(ctx, api.LeaderboardOptions{Category: "cloud"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBreakdownWeightsAndTimeBonus(t *testing.T) {
	sc := &api.Scenario{
		ScoringCriteria: api.ScoringCriteria{SecurityWeight: 0.4, ArchitectureWeight: 0.3, PerformanceWeight: 0.2, CompletenessWeight: 0.1},
		TimeLimit:       intPtr(45),
	}
	results := []api.ValidationResult{
		{Severity: api.SeverityError, Category: api.CategorySecurity},
		{Severity: api.SeverityWarning, Category: api.CategorySecurity},
		{Severity: api.SeverityInfo, Category: api.CategoryPerformance},
	}

	slow := breakdown(results, sc, 45*60+1)
	assert.Equal(t, 70.0, slow.SecurityScore)
	assert.Equal(t, 95.0, slow.PerformanceScore)
	// (70*.4 + 100*.3 + 95*.2 + 100*.1) * .9
	assert.InDelta(t, 78.3, slow.TotalScore, 0.001)

	fast := breakdown(nil, sc, 60)
	assert.Equal(t, 100.0, fast.TotalScore)
}

func TestLearningAndAchievements(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	paths, err := c.LearningPaths(ctx, "")
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	web, err := c.LearningPaths(ctx, "web")
	require.NoError(t, err)
	require.Len(t, web, 1)

	_, err = c.EnrollPath(ctx, web[0].ID)
	require.NoError(t, err)
	_, err = c.EnrollPath(ctx, web[0].ID)
	require.NoError(t, err)

	prog, err := c.LearningProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.EnrolledPaths)
	require.Len(t, prog.ActivePaths, 1)
	assert.Equal(t, "Web Application Security", prog.ActivePaths[0].PathName)

	recs, err := c.Recommendations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Start with Web Security Fundamentals", recs[0].Title)

	check, err := c.CheckAchievements(ctx)
	require.NoError(t, err)
	assert.Zero(t, check.TotalNew)

	d, err := c.CreateDiagram(ctx, api.DiagramCreate{Title: "Shop", ScenarioID: "ecommerce-web"})
	require.NoError(t, err)
	_, err = c.Score(ctx, d.ID, 300)
	require.NoError(t, err)

	check, err = c.CheckAchievements(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, check.NewAchievements)
	assert.Equal(t, "first_steps", check.NewAchievements[0].BadgeID)

	again, err := c.CheckAchievements(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.TotalNew)

	ach, err := c.Achievements(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(badgeCatalog), ach.Achievements.TotalBadges)
	assert.Equal(t, check.TotalNew, ach.Achievements.EarnedBadges)
	assert.True(t, ach.Achievements.Badges[0].Earned)

	learned, err := c.LearningAchievements(ctx)
	require.NoError(t, err)
	assert.Contains(t, learned.EarnedBadges, "first_steps")
}

func TestAnalytics(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	dash, err := c.Dashboard(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, dash.AnalysisPeriodDays)
	assert.Equal(t, "Intermediate", dash.Analytics.PerformanceOverview.CurrentLevel)
	assert.Contains(t, dash.Analytics.SkillRadar, "security")

	tl, err := c.PerformanceTimeline(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, tl.Timeline, 15)
	assert.Equal(t, 15, tl.TotalAttempts)

	ins, err := c.LearningInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Performance"}, ins.FocusAreas)
	require.NotNil(t, ins.PerformanceSummary)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, c := newTestServer(t)
	login(t, c)
	_, err := c.ListScenarios(context.Background(), api.ScenarioFilter{})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "threatlab_demo_requests_total")
	assert.Contains(t, string(body), `route="/api/scenarios/"`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Options{Seed: 1}).ListenAndServe(ctx, "127.0.0.1:0")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
