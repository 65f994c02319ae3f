package coach

import (
	"fmt"
	"strings"

	"github.com/abhisek/threatlab/internal/api"
)

const explainSystemPrompt = `You are a security architecture coach. A student drew a system architecture for a threat modeling exercise and an automated validator reported findings. Explain each finding and how to fix the diagram.`

func buildExplainUserMessage(in ExplainInput, maxFindings int) string {
	var b strings.Builder

	if in.Scenario != nil {
		fmt.Fprintf(&b, "Scenario: %s (%s, %s)\n", in.Scenario.Title, in.Scenario.Category, in.Scenario.Difficulty)
		if ctx := in.Scenario.Requirements.BusinessContext; ctx != "" {
			fmt.Fprintf(&b, "Context: %s\n", ctx)
		}
		if len(in.Scenario.Requirements.RequiredElements) > 0 {
			fmt.Fprintf(&b, "Required elements: %s\n", strings.Join(in.Scenario.Requirements.RequiredElements, "; "))
		}
		b.WriteString("\n")
	}

	writeDiagram(&b, in.Nodes, in.Edges)

	b.WriteString("\nFindings:\n")
	results := in.Results
	if maxFindings > 0 && len(results) > maxFindings {
		results = results[:maxFindings]
	}
	for _, r := range results {
		fmt.Fprintf(&b, "- [%s] %s (%s/%s): %s", r.RuleID, r.RuleName, r.Category, r.Severity, r.Message)
		if r.ElementID != "" {
			fmt.Fprintf(&b, " (element %s)", r.ElementID)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Instructions:
1. Write a short summary of the most important problems.
2. Return one item per finding, in the order given, using its rule_id.
3. Each fix must be a change the student can make in the diagram: add a component type, connect two components, or mark a connection encrypted.
4. Use plain text. No markdown.`)

	return b.String()
}

func writeDiagram(b *strings.Builder, nodes []api.Node, edges []api.Edge) {
	labels := make(map[string]string, len(nodes))
	b.WriteString("Components:\n")
	if len(nodes) == 0 {
		b.WriteString("None\n")
	}
	for _, n := range nodes {
		labels[n.ID] = n.Label()
		fmt.Fprintf(b, "- %s (%s)\n", n.Label(), n.Type)
	}

	b.WriteString("Connections:\n")
	if len(edges) == 0 {
		b.WriteString("None\n")
	}
	for _, e := range edges {
		src, tgt := labels[e.Source], labels[e.Target]
		if src == "" {
			src = e.Source
		}
		if tgt == "" {
			tgt = e.Target
		}
		fmt.Fprintf(b, "- %s -> %s", src, tgt)
		if p := e.Protocol(); p != "" {
			fmt.Fprintf(b, " via %s", p)
		}
		if e.Encrypted() {
			b.WriteString(" (encrypted)")
		}
		b.WriteString("\n")
	}
}

const reviewSystemPrompt = `You are a security architecture coach reviewing a student's scored threat modeling attempt. Be direct and specific.`

func buildReviewUserMessage(score *api.Score, scenario *api.Scenario) string {
	var b strings.Builder

	if scenario != nil {
		fmt.Fprintf(&b, "Scenario: %s (%s)\n", scenario.Title, scenario.Difficulty)
	}
	s := score.Scores
	fmt.Fprintf(&b, "Total: %.1f\nSecurity: %.1f\nArchitecture: %.1f\nPerformance: %.1f\nCompleteness: %.1f\n",
		s.TotalScore, s.SecurityScore, s.ArchitectureScore, s.PerformanceScore, s.CompletenessScore)
	fmt.Fprintf(&b, "Time spent: %d minutes\n", score.TimeSpent/60)

	if len(score.ValidationResults) > 0 {
		b.WriteString("\nFindings:\n")
		for _, r := range score.ValidationResults {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Severity, r.RuleName, r.Message)
		}
	}
	if fb := score.Feedback; fb != nil && fb.Summary != "" {
		fmt.Fprintf(&b, "\nGrader summary: %s\n", fb.Summary)
	}

	b.WriteString(`
Instructions:
Give a one sentence verdict, the weakest 1-3 scoring categories, and 2-4 concrete actions for the next attempt.`)

	return b.String()
}
