package main

import (
	"repe/internal/server/snapshot"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every exercise, workout and history entry to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			snap, err := snapshot.Export(cmd.Context(), svc)
			if err != nil {
				return err
			}
			if err := snapshot.WriteFile(args[0], snap); err != nil {
				return err
			}
			a.printf("%s Exported %d exercises, %d workouts, %d history entries to %s\n",
				color.GreenString("✓"), len(snap.Exercises), len(snap.Workouts), len(snap.History), args[0])
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a file written by export",
		Long: `Load a file written by export. Workouts keep their IDs and replace any
workout with the same ID; history entries that already exist are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}

			svc, _, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			res, err := snapshot.Import(cmd.Context(), svc, snap)
			if err != nil {
				return err
			}
			a.printf("%s Imported %d new exercises, %d workouts (%d sets), %d history entries (%d skipped)\n",
				color.GreenString("✓"), res.Exercises, res.Workouts, res.Sets, res.History, res.HistorySkipped)
			return nil
		},
	}
}
