package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/app"
	"github.com/abhisek/threatlab/internal/selfupdate"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := app.Options{
		Services: e.svc,
		Version:  version,
	}
	if version != selfupdate.DevVersion {
		opts.Updates = selfupdate.NewChecker()
	}
	return app.Run(opts)
}
