package coach

import "github.com/abhisek/threatlab/internal/llm"

// ExplanationSchema is the JSON schema for finding explanations.
var ExplanationSchema = &llm.Schema{
	Name:        "finding-explanation",
	Description: "Plain-language explanation of threat model validation findings with concrete fixes",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentence overview of the most important problems in the design",
			},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rule_id": map[string]any{
							"type":        "string",
							"description": "The rule_id of the finding being explained",
						},
						"why_it_matters": map[string]any{
							"type":        "string",
							"description": "The threat this finding exposes (1-2 sentences)",
						},
						"fix": map[string]any{
							"type":        "string",
							"description": "A concrete change to the diagram, naming component types to add or connect",
						},
					},
					"required":             []any{"rule_id", "why_it_matters", "fix"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"summary", "items"},
		"additionalProperties": false,
	},
}

// ReviewSchema is the JSON schema for score reviews.
var ReviewSchema = &llm.Schema{
	Name:        "score-review",
	Description: "Short review of a scored threat model with next steps",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"headline": map[string]any{
				"type":        "string",
				"description": "One sentence verdict on the attempt",
			},
			"focus_areas": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "1-3 scoring categories to work on (security, architecture, performance, completeness)",
			},
			"next_steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "2-4 concrete actions for the next attempt",
			},
		},
		"required":             []any{"headline", "focus_areas", "next_steps"},
		"additionalProperties": false,
	},
}
