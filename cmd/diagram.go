package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/coach"
	"github.com/abhisek/threatlab/internal/diagram"
)

var diagramCmd = &cobra.Command{
	Use:     "diagram",
	Aliases: []string{"diagrams"},
	Short:   "Inspect, validate and submit saved diagrams",
}

var diagramListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your saved diagrams",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, _ := cmd.Flags().GetString("scenario")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		list, err := e.svc.Client.ListDiagrams(cmd.Context(), api.DiagramListOptions{ScenarioID: scenario})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			pterm.Info.Println("No saved diagrams.")
			return nil
		}
		rows := [][]string{{"ID", "Title", "Scenario", "Status", "Version", "Updated"}}
		for _, d := range list {
			rows = append(rows, []string{
				d.ID, d.Title, d.ScenarioID, d.Status, fmt.Sprint(d.Version),
				d.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var diagramShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a diagram's components and connections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		store := e.svc.Diagram
		if err := store.LoadDiagram(cmd.Context(), args[0]); err != nil {
			return err
		}
		d := store.Current()
		pterm.DefaultHeader.Println(d.Title)
		fmt.Printf("Scenario: %s   Status: %s   Version: %d\n", d.ScenarioID, d.Status, d.Version)

		nodes := store.Nodes()
		labels := make(map[string]string, len(nodes))
		pterm.DefaultSection.Println("Components")
		rows := [][]string{{"ID", "Type", "Label"}}
		for _, n := range nodes {
			labels[n.ID] = n.Label()
			rows = append(rows, []string{n.ID, string(n.Type), n.Label()})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}

		if edges := store.Edges(); len(edges) > 0 {
			pterm.DefaultSection.Println("Connections")
			rows = [][]string{{"From", "To", "Protocol", "Encrypted"}}
			for _, ed := range edges {
				rows = append(rows, []string{
					labelOr(labels, ed.Source), labelOr(labels, ed.Target),
					ed.Protocol(), yesNo(ed.Encrypted()),
				})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}

		meta := store.Metadata()
		fmt.Printf("\nTrust boundaries: %d   Data flows: %d   Security controls: %d\n",
			len(meta.TrustBoundaries), len(meta.DataFlows), len(meta.SecurityControls))
		return nil
	},
}

var diagramValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Validate a saved diagram and print the findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		explain, _ := cmd.Flags().GetBool("explain")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		store := e.svc.Diagram
		if err := store.LoadDiagram(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := store.ValidateDiagram(cmd.Context()); err != nil {
			return err
		}

		results := store.ValidationResults()
		printFindings(results)

		if !explain || len(results) == 0 {
			return nil
		}
		if !e.svc.Coach.Enabled() {
			pterm.Warning.Println("Coach is off; set an LLM API key to get explanations.")
			return nil
		}
		spinner, _ := pterm.DefaultSpinner.Start("Asking the coach...")
		advice, err := e.svc.Coach.Explain(cmd.Context(), coach.ExplainInput{
			DiagramID: args[0],
			Nodes:     store.Nodes(),
			Edges:     store.Edges(),
			Results:   results,
		})
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			return errors.Wrap(err, "coach")
		}
		pterm.DefaultSection.Println("Coach")
		fmt.Println(advice.Summary)
		for _, it := range advice.Items {
			fmt.Printf("\n[%s] %s\n  Fix: %s\n", it.RuleID, it.WhyItMatters, it.Fix)
		}
		return nil
	},
}

var diagramSubmitCmd = &cobra.Command{
	Use:   "submit <id>",
	Short: "Submit a saved diagram for scoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, _ := cmd.Flags().GetInt("minutes")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		store := e.svc.Diagram
		if err := store.LoadDiagram(cmd.Context(), args[0]); err != nil {
			return err
		}
		score, err := store.SubmitForScoring(cmd.Context(), minutes*60)
		if err != nil {
			var perr *diagram.PartialSubmitError
			if errors.As(err, &perr) {
				return errors.WithHint(err, "run the same command again to retry scoring")
			}
			return err
		}
		printScore(score)
		return nil
	},
}

var diagramExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a diagram as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		d, err := e.svc.Client.GetDiagram(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		buf, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode diagram")
		}
		buf = append(buf, '\n')

		if out == "" || out == "-" {
			_, err = cmd.OutOrStdout().Write(buf)
			return err
		}
		if err := os.WriteFile(out, buf, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", out)
		}
		pterm.Success.Printf("Exported %s to %s\n", d.Title, out)
		return nil
	},
}

func printFindings(results []api.ValidationResult) {
	if len(results) == 0 {
		pterm.Success.Println("No findings.")
		return
	}
	pterm.Info.Println(diagram.Summarize(results).String())
	for _, g := range diagram.GroupResults(results) {
		pterm.DefaultSection.Println(strings.ToUpper(string(g.Category)))
		for _, r := range g.Results {
			line := fmt.Sprintf("[%s] %s: %s", r.RuleID, r.RuleName, r.Message)
			switch r.Severity {
			case api.SeverityError:
				pterm.Error.Println(line)
			case api.SeverityWarning:
				pterm.Warning.Println(line)
			default:
				pterm.Info.Println(line)
			}
		}
	}
}

func printScore(s *api.Score) {
	b := s.Scores
	rows := [][]string{
		{"Category", "Score"},
		{"Security", fmt.Sprintf("%.0f", b.SecurityScore)},
		{"Architecture", fmt.Sprintf("%.0f", b.ArchitectureScore)},
		{"Performance", fmt.Sprintf("%.0f", b.PerformanceScore)},
		{"Completeness", fmt.Sprintf("%.0f", b.CompletenessScore)},
		{"Total", fmt.Sprintf("%.0f", b.TotalScore)},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	if f := s.Feedback; f != nil && f.Summary != "" {
		fmt.Println()
		fmt.Println(f.Summary)
	}
}

func labelOr(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	diagramListCmd.Flags().String("scenario", "", "Only diagrams for this scenario")
	diagramValidateCmd.Flags().Bool("explain", false, "Ask the coach to explain the findings")
	diagramSubmitCmd.Flags().Int("minutes", 0, "Minutes spent on the diagram")
	diagramExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	diagramCmd.AddCommand(diagramListCmd)
	diagramCmd.AddCommand(diagramShowCmd)
	diagramCmd.AddCommand(diagramValidateCmd)
	diagramCmd.AddCommand(diagramSubmitCmd)
	diagramCmd.AddCommand(diagramExportCmd)
}
