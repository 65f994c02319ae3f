package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List editor drafts autosaved on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		drafts, err := s.DraftRepo().List(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "list drafts")
		}
		if len(drafts) == 0 {
			pterm.Info.Println("No local drafts.")
			return nil
		}
		rows := [][]string{{"Key", "Title", "Scenario", "Diagram", "Saved"}}
		for _, d := range drafts {
			rows = append(rows, []string{
				d.Key, d.Title, d.ScenarioID, d.DiagramID,
				d.SavedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var draftsDiscardCmd = &cobra.Command{
	Use:   "discard <key>",
	Short: "Delete a local draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DraftRepo().Delete(cmd.Context(), args[0]); err != nil {
			return errors.Wrap(err, "delete draft")
		}
		pterm.Success.Println("Draft discarded.")
		return nil
	},
}

func init() {
	draftsCmd.AddCommand(draftsDiscardCmd)
	rootCmd.AddCommand(draftsCmd)
}
