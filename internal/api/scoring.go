package api

import (
	"context"
	"net/url"
	"strconv"
)

// Validate runs the backend rule engine against a persisted diagram.
func (c *Client) Validate(ctx context.Context, diagramID string) (*ValidationResponse, error) {
	q := url.Values{"diagram_id": {diagramID}}
	var out ValidationResponse
	if err := c.post(ctx, "/scoring/validate", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Score computes and records the final score. timeSpent is in seconds.
func (c *Client) Score(ctx context.Context, diagramID string, timeSpent int) (*Score, error) {
	q := url.Values{
		"diagram_id": {diagramID},
		"time_spent": {strconv.Itoa(timeSpent)},
	}
	var out Score
	if err := c.post(ctx, "/scoring/score", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HistoryOptions narrows GET /scoring/history.
type HistoryOptions struct {
	ScenarioID string
	Skip       int
	Limit      int
}

func (c *Client) ScoreHistory(ctx context.Context, opts HistoryOptions) ([]Score, error) {
	q := url.Values{}
	if opts.ScenarioID != "" {
		q.Set("scenario_id", opts.ScenarioID)
	}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	var out []Score
	if err := c.get(ctx, "/scoring/history", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserStats(ctx context.Context) (*UserStats, error) {
	var out UserStats
	if err := c.get(ctx, "/scoring/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Feedback(ctx context.Context, scoreID string) (*DetailedFeedback, error) {
	var out DetailedFeedback
	if err := c.get(ctx, "/scoring/feedback/"+pathEscape(scoreID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaderboardOptions narrows GET /scoring/leaderboard. Timeframe is one of
// all, week, month, year.
type LeaderboardOptions struct {
	Category   string
	Difficulty string
	Timeframe  string
	Limit      int
}

func (c *Client) Leaderboard(ctx context.Context, opts LeaderboardOptions) ([]LeaderboardEntry, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Difficulty != "" {
		q.Set("difficulty", opts.Difficulty)
	}
	if opts.Timeframe != "" {
		q.Set("timeframe", opts.Timeframe)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	var out []LeaderboardEntry
	if err := c.get(ctx, "/scoring/leaderboard", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
