package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhisek/threatlab/internal/app"
	"github.com/abhisek/threatlab/internal/config"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/services"
	"github.com/abhisek/threatlab/internal/store"
)

// dbEnv overrides the database location without a config file.
const dbEnv = "THREATLAB_DB"

var rootCmd = &cobra.Command{
	Use:           "threatlab",
	Short:         "Threat modeling practice in the terminal",
	Long:          "threatlab is a terminal client for a threat modeling learning platform: browse scenarios, draw architecture diagrams, validate them and get scored.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// cfg is resolved by setup before any command runs.
var cfg *config.Config

// Execute runs the root command and prints any error with its hints.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		pterm.Error.Println(err.Error())
		for _, h := range errors.GetAllHints(err) {
			pterm.Info.Println(h)
		}
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides "+dbEnv+" env var)")
	pf.String("config", "", "Path to a threatlab.toml config file")
	pf.String("api-url", "", "Backend base URL including the /api prefix")
	pf.Bool("log-stderr", false, "Write logs to stderr instead of the log file")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(learningCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(demoServerCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// setup loads configuration and starts logging.
func setup(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	v, err := config.New(file)
	if err != nil {
		return err
	}
	if err := bindFlag(v, cmd, "api.base_url", "api-url"); err != nil {
		return err
	}
	if err := bindFlag(v, cmd, "log.level", "log-level"); err != nil {
		return err
	}
	c, err := config.FromViper(v)
	if err != nil {
		return err
	}
	cfg = c

	toStderr, _ := cmd.Flags().GetBool("log-stderr")
	logFile := cfg.Log.File
	if logFile == "" && !toStderr {
		if dir, err := store.DataDir(); err == nil {
			logFile = filepath.Join(dir, "threatlab.log")
		}
	}
	return logging.Initialize(logging.Options{
		Level:  cfg.Log.Level,
		File:   logFile,
		Stderr: toStderr,
	})
}

// bindFlag lets an explicitly set flag override the config key.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) error {
	f := cmd.Flags().Lookup(flag)
	if f == nil || !f.Changed {
		return nil
	}
	return errors.Wrapf(v.BindPFlag(key, f), "bind --%s", flag)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then THREATLAB_DB env var, then store.path from config, then the default
// XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if p := os.Getenv(dbEnv); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// openStore opens the local database.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "resolve database path")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return st, nil
}

// env is what most subcommands need: the local store and the wired
// services.
type env struct {
	store *store.Store
	svc   *services.Services
}

func (e *env) Close() {
	e.svc.Session.Wait()
	_ = e.store.Close()
}

func openEnv(cmd *cobra.Command) (*env, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := app.NewServices(cmd.Context(), cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &env{store: st, svc: svc}, nil
}

// openSignedIn is openEnv plus a restored session.
func openSignedIn(cmd *cobra.Command) (*env, error) {
	e, err := openEnv(cmd)
	if err != nil {
		return nil, err
	}
	if err := requireSession(cmd.Context(), e.svc); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func requireSession(ctx context.Context, svc *services.Services) error {
	ok, err := svc.Session.CheckAuth(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.WithHint(errors.New("not signed in"), "run: threatlab login")
	}
	return nil
}
