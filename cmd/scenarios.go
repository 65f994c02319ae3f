package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/catalog"
)

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"scenario"},
	Short:   "Browse threat modeling scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		search, _ := cmd.Flags().GetString("search")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		cat := e.svc.Catalog
		cat.SetFilter(catalog.Filter{Category: category, Difficulty: difficulty, Tags: tags, Search: search})
		if err := cat.Fetch(cmd.Context()); err != nil {
			return err
		}

		list := cat.Scenarios()
		if len(list) == 0 {
			pterm.Info.Println("No scenarios match.")
			return nil
		}

		rows := [][]string{{"ID", "Title", "Category", "Difficulty", "Time", "Points"}}
		for _, s := range list {
			rows = append(rows, []string{
				s.ID, s.Title, s.Category, s.Difficulty, timeLimit(s.TimeLimit), fmt.Sprint(s.MaxPoints),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		if cat.HasMore() {
			pterm.Info.Println("More scenarios available; narrow the filter to see them.")
		}
		return nil
	},
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a scenario with its requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.svc.Catalog.Select(cmd.Context(), args[0]); err != nil {
			return err
		}
		s := e.svc.Catalog.Detail()
		printScenario(s)

		if p := e.svc.Catalog.Progress(); p != nil {
			pterm.DefaultSection.Println("Your progress")
			fmt.Printf("Attempts: %d   Best score: %.0f   Saved diagrams: %d   Completed: %v\n",
				p.Attempts, p.BestScore, p.SavedDiagrams, p.Completed)
		}
		return nil
	},
}

func printScenario(s *api.Scenario) {
	pterm.DefaultHeader.Println(s.Title)
	fmt.Printf("%s · %s · %s · %d points\n", s.Category, s.Difficulty, timeLimit(s.TimeLimit), s.MaxPoints)
	if len(s.Tags) > 0 {
		fmt.Println("Tags:", strings.Join(s.Tags, ", "))
	}
	fmt.Println()
	fmt.Println(s.Description)

	req := s.Requirements
	if req.BusinessContext != "" {
		pterm.DefaultSection.Println("Business context")
		fmt.Println(req.BusinessContext)
	}
	if len(req.RequiredElements) > 0 {
		pterm.DefaultSection.Println("Required elements")
		printBullets(req.RequiredElements)
	}
	if len(req.TechnicalConstraints) > 0 {
		pterm.DefaultSection.Println("Technical constraints")
		printBullets(req.TechnicalConstraints)
	}
}

func printBullets(items []string) {
	for _, it := range items {
		fmt.Println("  •", it)
	}
}

func timeLimit(minutes *int) string {
	if minutes == nil {
		return "untimed"
	}
	return fmt.Sprintf("%d min", *minutes)
}

func init() {
	f := scenariosListCmd.Flags()
	f.String("category", "", "Filter by category")
	f.String("difficulty", "", "Filter by difficulty")
	f.StringP("search", "s", "", "Search title, description and tags")
	f.StringSlice("tag", nil, "Filter by tag (repeatable)")

	scenariosCmd.AddCommand(scenariosListCmd)
	scenariosCmd.AddCommand(scenariosShowCmd)
}
