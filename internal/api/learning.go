package api

import (
	"context"
	"net/url"
	"strconv"
)

func (c *Client) LearningPaths(ctx context.Context, category string) ([]LearningPath, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	var out struct {
		LearningPaths []LearningPath `json:"learning_paths"`
	}
	if err := c.get(ctx, "/learning/paths", q, &out); err != nil {
		return nil, err
	}
	return out.LearningPaths, nil
}

func (c *Client) EnrollPath(ctx context.Context, pathID string) (*Message, error) {
	var out Message
	if err := c.post(ctx, "/learning/paths/"+pathEscape(pathID)+"/enroll", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LearningProgress(ctx context.Context) (*LearningProgress, error) {
	var out LearningProgress
	if err := c.get(ctx, "/learning/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LearningAchievements(ctx context.Context) (*LearningAchievements, error) {
	var out LearningAchievements
	if err := c.get(ctx, "/learning/achievements", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Recommendations(ctx context.Context, limit int) ([]Recommendation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := c.get(ctx, "/learning/recommendations", q, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}
