package api

import (
	"context"
	"net/url"
	"strconv"
)

// ScenarioFilter narrows GET /scenarios/. Zero values are omitted.
type ScenarioFilter struct {
	Category   string
	Difficulty string
	Tags       []string
	Search     string
	Skip       int
	Limit      int
}

func (f ScenarioFilter) values() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Difficulty != "" {
		q.Set("difficulty", f.Difficulty)
	}
	for _, t := range f.Tags {
		q.Add("tags", t)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

func (c *Client) ListScenarios(ctx context.Context, f ScenarioFilter) ([]Scenario, error) {
	var out []Scenario
	if err := c.get(ctx, "/scenarios/", f.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetScenario(ctx context.Context, id string) (*Scenario, error) {
	var out Scenario
	if err := c.get(ctx, "/scenarios/"+pathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ScenarioProgress(ctx context.Context, id string) (*ScenarioProgress, error) {
	var out ScenarioProgress
	if err := c.get(ctx, "/scenarios/"+pathEscape(id)+"/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateScenario requires an admin account.
func (c *Client) CreateScenario(ctx context.Context, s Scenario) (*Scenario, error) {
	s.ID = ""
	var out Scenario
	if err := c.post(ctx, "/scenarios/", nil, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateScenario requires an admin account.
func (c *Client) UpdateScenario(ctx context.Context, id string, s Scenario) (*Scenario, error) {
	s.ID = ""
	var out Scenario
	if err := c.put(ctx, "/scenarios/"+pathEscape(id), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteScenario requires an admin account.
func (c *Client) DeleteScenario(ctx context.Context, id string) error {
	return c.delete(ctx, "/scenarios/"+pathEscape(id))
}

func (c *Client) ScenarioCategories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := c.get(ctx, "/scenarios/categories/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) ScenarioDifficulties(ctx context.Context) ([]string, error) {
	var out struct {
		Difficulties []string `json:"difficulties"`
	}
	if err := c.get(ctx, "/scenarios/difficulties/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Difficulties, nil
}
