package api

import (
	"context"
	"net/url"
	"strconv"
)

func (c *Client) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out Dashboard
	if err := c.get(ctx, "/analytics/dashboard", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PerformanceTimeline(ctx context.Context, limit int) (*Timeline, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out Timeline
	if err := c.get(ctx, "/analytics/performance-timeline", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LearningInsights(ctx context.Context) (*Insights, error) {
	var out Insights
	if err := c.get(ctx, "/analytics/learning-insights", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
