package cmd

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update threatlab to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		tag, err := checker.Update(ctx, &selfupdate.UpdateInput{
			CurrentVersion: version,
			TargetVersion:  updateTo,
		}, func(_ selfupdate.Stage, msg string) {
			pterm.Info.Println(msg)
		})
		if err == nil {
			pterm.Success.Printf("Updated to %s\n", tag)
			return nil
		}

		if errors.Is(err, selfupdate.ErrDevBuild) {
			pterm.Warning.Println("Cannot update a development build. Install a release build first.")
			return nil
		}
		if errors.Is(err, selfupdate.ErrAlreadyLatest) {
			pterm.Success.Println("Already running the latest version.")
			return nil
		}
		if errors.Is(err, os.ErrPermission) {
			return errors.WithHint(err, "try running: sudo threatlab update")
		}

		return err
	},
}

var updateTo string

func init() {
	updateCmd.Flags().StringVar(&updateTo, "to", "", "install this release tag instead of the latest")
}
