// Package main is the repe server binary: the HTTP API, database maintenance,
// export/import, the MCP server and token issuing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"repe/internal/config"
	"repe/internal/server/service"
	"repe/internal/server/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries settings shared by every subcommand
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	configFile string
	envFiles   []string
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.New(), out: out}

	root := &cobra.Command{
		Use:   "repe",
		Short: "Workout tracking server",
		Long: `repe records workouts, sets and training history behind a JSON API.

QUICK START:

  $ export DATABASE_URL=sqlite://repe.db
  $ repe db seed          # create the schema and load the exercise catalog
  $ repe serve --dev      # API on http://localhost:8080

DATABASE_URL accepts postgres://, postgresql://, sqlite://path, file:path or a
path ending in .db.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configFile, a.envFiles...)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default repe.yaml in the user config dir or .)")
	pf.StringSliceVar(&a.envFiles, "env-file", nil, "Env files to load (default .env when present)")
	pf.String("database-url", "", "Database URL (overrides DATABASE_URL)")
	pf.Bool("dev", false, "Development mode (relaxed rate limits, fixed JWT secret, error details)")
	_ = a.v.BindPFlag(config.KeyDatabaseURL, pf.Lookup("database-url"))
	_ = a.v.BindPFlag(config.KeyDev, pf.Lookup("dev"))

	root.AddCommand(
		a.newServeCmd(),
		a.newDBCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newMCPCmd(),
		a.newTokenCmd(),
	)
	return root
}

// openService opens the configured database, creates any missing tables and
// wraps it in a service. Callers own the returned service's Shutdown.
func (a *app) openService(ctx context.Context) (*service.Service, *storage.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil, config.ErrMissingDatabaseURL
	}

	store, err := storage.Open(a.cfg.DatabaseURL, a.cfg.Dev)
	if err != nil {
		return nil, nil, err
	}
	if err := store.InitDB(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("initialize schema: %w", err)
	}
	return service.New(store, nil), store, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
