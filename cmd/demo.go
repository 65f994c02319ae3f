package cmd

import (
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/demoserver"
	"github.com/abhisek/threatlab/internal/logging"
)

var demoServerCmd = &cobra.Command{
	Use:   "demo-server",
	Short: "Run the bundled in-memory backend",
	Long:  "Serves the platform API from memory with a seeded demo account (" + demoserver.DemoEmail + " / " + demoserver.DemoPassword + "). Prometheus metrics are exposed at /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Demo.Addr
		}
		seed, _ := cmd.Flags().GetUint64("seed")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := demoserver.New(demoserver.Options{
			Seed:   seed,
			Logger: logging.Component("demoserver"),
		})
		pterm.Info.Printf("Demo backend on %s (sign in as %s / %s)\n", addr, demoserver.DemoEmail, demoserver.DemoPassword)
		pterm.Info.Println("Press Ctrl+C to stop")
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			return err
		}
		pterm.Success.Println("Server stopped cleanly")
		return nil
	},
}

func init() {
	demoServerCmd.Flags().String("addr", "", "Listen address (default demo.addr)")
	demoServerCmd.Flags().Uint64("seed", 0, "Seed for canned findings; 0 picks one from the clock")
}
