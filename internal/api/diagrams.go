package api

import (
	"context"
	"net/url"
	"strconv"
)

// DiagramListOptions narrows GET /diagrams/.
type DiagramListOptions struct {
	ScenarioID string
	Skip       int
	Limit      int
}

func (o DiagramListOptions) values() url.Values {
	q := url.Values{}
	if o.ScenarioID != "" {
		q.Set("scenario_id", o.ScenarioID)
	}
	if o.Skip > 0 {
		q.Set("skip", strconv.Itoa(o.Skip))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

func (c *Client) ListDiagrams(ctx context.Context, opts DiagramListOptions) ([]Diagram, error) {
	var out []Diagram
	if err := c.get(ctx, "/diagrams/", opts.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDiagram(ctx context.Context, id string) (*Diagram, error) {
	var out Diagram
	if err := c.get(ctx, "/diagrams/"+pathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDiagram(ctx context.Context, d DiagramCreate) (*Diagram, error) {
	var out Diagram
	if err := c.post(ctx, "/diagrams/", nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDiagram(ctx context.Context, id string, upd DiagramUpdate) (*Diagram, error) {
	var out Diagram
	if err := c.put(ctx, "/diagrams/"+pathEscape(id), upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDiagram(ctx context.Context, id string) error {
	return c.delete(ctx, "/diagrams/"+pathEscape(id))
}

// SubmitDiagram marks the diagram as submitted and returns its new state.
func (c *Client) SubmitDiagram(ctx context.Context, id string) (*Diagram, error) {
	var out struct {
		Message string  `json:"message"`
		Diagram Diagram `json:"diagram"`
	}
	if err := c.post(ctx, "/diagrams/"+pathEscape(id)+"/submit", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Diagram, nil
}

func (c *Client) DuplicateDiagram(ctx context.Context, id string) (*Diagram, error) {
	var out Diagram
	if err := c.post(ctx, "/diagrams/"+pathEscape(id)+"/duplicate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
