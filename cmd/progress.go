package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/api"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your scored submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		scenario, _ := cmd.Flags().GetString("scenario")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		scores, err := e.svc.Progress.History(cmd.Context(), api.HistoryOptions{ScenarioID: scenario, Limit: limit})
		if err != nil {
			return err
		}
		if len(scores) == 0 {
			pterm.Info.Println("No submissions yet.")
			return nil
		}
		rows := [][]string{{"When", "Scenario", "Total", "Security", "Architecture", "Time"}}
		for _, s := range scores {
			rows = append(rows, []string{
				s.SubmissionTime.Local().Format("2006-01-02 15:04"),
				s.ScenarioID,
				fmt.Sprintf("%.0f", s.Scores.TotalScore),
				fmt.Sprintf("%.0f", s.Scores.SecurityScore),
				fmt.Sprintf("%.0f", s.Scores.ArchitectureScore),
				(time.Duration(s.TimeSpent) * time.Second).String(),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your overall statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.svc.Progress.Stats(cmd.Context())
		if err != nil {
			return err
		}
		rows := [][]string{
			{"Scenarios attempted", fmt.Sprint(st.TotalScenarios)},
			{"Scenarios passed", fmt.Sprint(st.CompletedScenarios)},
			{"Average score", fmt.Sprintf("%.1f", st.AverageScore)},
			{"Best score", fmt.Sprintf("%.0f", st.BestScore)},
			{"Time spent", (time.Duration(st.TotalTimeSpent) * time.Second).String()},
			{"Current streak", fmt.Sprintf("%d days", st.CurrentStreak)},
			{"Badges", fmt.Sprint(len(st.BadgesEarned))},
		}
		if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
			return err
		}

		if in, err := e.svc.Progress.Insights(cmd.Context()); err == nil && len(in.Insights) > 0 {
			pterm.DefaultSection.Println("Insights")
			printBullets(in.Insights)
		}
		return nil
	},
}

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Learning paths and recommendations",
}

var learningPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List learning paths and your progress on them",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		paths, err := e.svc.Progress.Paths(cmd.Context(), category)
		if err != nil {
			return err
		}
		progress := map[string]float64{}
		if lp, err := e.svc.Progress.LearningProgress(cmd.Context()); err == nil {
			for _, p := range append(lp.ActivePaths, lp.CompletedPaths...) {
				progress[p.PathID] = p.CompletionPercentage
			}
		}

		rows := [][]string{{"ID", "Name", "Difficulty", "Scenarios", "Hours", "Progress"}}
		for _, p := range paths {
			pct := "-"
			if v, ok := progress[p.ID]; ok {
				pct = fmt.Sprintf("%.0f%%", v)
			}
			rows = append(rows, []string{
				p.ID, p.Name, p.Difficulty, fmt.Sprint(len(p.Scenarios)),
				fmt.Sprintf("%.0f", p.EstimatedHours), pct,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var learningEnrollCmd = &cobra.Command{
	Use:   "enroll <path-id>",
	Short: "Enroll in a learning path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.svc.Progress.Enroll(cmd.Context(), args[0]); err != nil {
			return err
		}
		pterm.Success.Printf("Enrolled in %s\n", args[0])
		return nil
	},
}

var learningRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest what to practice next",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		recs, err := e.svc.Progress.Recommendations(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			pterm.Info.Println("No recommendations right now.")
			return nil
		}
		for _, r := range recs {
			pterm.DefaultSection.Println(r.Title)
			fmt.Println(r.Description)
			if r.Reason != "" {
				fmt.Println("Why:", r.Reason)
			}
		}
		return nil
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Show earned and locked badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		check, _ := cmd.Flags().GetBool("check")

		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if check {
			res, err := e.svc.Progress.CheckAchievements(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range res.NewAchievements {
				pterm.Success.Printf("New achievement unlocked: %s\n", a.Name)
			}
			if res.TotalNew == 0 {
				pterm.Info.Println("No new achievements this time.")
			}
		}

		ach, err := e.svc.Progress.Achievements(cmd.Context())
		if err != nil {
			return err
		}
		sum := ach.Achievements
		fmt.Printf("Level %d · %d XP · %d/%d badges (%.0f%%)\n",
			sum.UserLevel.CurrentLevel, sum.UserLevel.ExperiencePoints,
			sum.EarnedBadges, sum.TotalBadges, sum.CompletionPercentage)

		rows := [][]string{{"", "Badge", "Tier", "Status"}}
		for _, b := range sum.Badges {
			status := "locked"
			switch {
			case b.Earned && b.EarnedAt != nil:
				status = "earned " + b.EarnedAt.Local().Format("2006-01-02")
			case b.Earned:
				status = "earned"
			case b.Progress != nil:
				status = fmt.Sprintf("%.0f%%", b.Progress.Percentage)
			}
			rows = append(rows, []string{b.Icon, b.Name, b.Tier, status})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of submissions to show")
	historyCmd.Flags().String("scenario", "", "Only submissions for this scenario")

	learningPathsCmd.Flags().String("category", "", "Filter by category")
	learningRecommendCmd.Flags().IntP("limit", "n", 5, "Number of recommendations")
	learningCmd.AddCommand(learningPathsCmd)
	learningCmd.AddCommand(learningEnrollCmd)
	learningCmd.AddCommand(learningRecommendCmd)

	achievementsCmd.Flags().Bool("check", false, "Check for newly earned badges first")
}
