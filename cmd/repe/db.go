package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"repe/internal/catalog"
	"repe/internal/server/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(a.newDBInitCmd(), a.newDBSeedCmd(), a.newDBResetCmd(), a.newDBQueryCmd())
	return cmd
}

func (a *app) newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()
			a.printf("Schema ready (%s)\n", store.Dialect())
			return nil
		},
	}
}

func (a *app) newDBSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the exercise catalog",
		Long: `Load exercises into the catalog. Exercises whose name already exists are
skipped, so seeding is safe to repeat. Without --file the built-in catalog is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exercises, err := catalog.Builtin()
			if file != "" {
				exercises, err = catalog.LoadFile(file)
			}
			if err != nil {
				return err
			}

			svc, _, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			n, err := svc.BulkSeedExercises(cmd.Context(), exercises)
			if err != nil {
				return err
			}
			a.printf("%s %d of %d exercises inserted\n", color.GreenString("✓"), n, len(exercises))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML exercise list (same layout as the built-in catalog)")
	return cmd
}

func (a *app) newDBResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and recreate the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all data; pass --yes to confirm")
			}
			svc, store, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			if err := store.ResetDB(cmd.Context()); err != nil {
				return err
			}
			a.printf("%s Database reset\n", color.YellowString("!"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func (a *app) newDBQueryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:       "query <workouts|history|exercises>",
		Short:     "Print recent rows",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"workouts", "history", "exercises"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			defer tw.Flush()

			ctx := cmd.Context()
			switch args[0] {
			case "workouts":
				workouts, page, err := svc.ListWorkouts(ctx, limit, 0)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "ID\tNAME\tSTARTED\tSOURCE\tEXERCISES")
				for _, w := range workouts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", w.ID, w.Name, w.StartedAt.Local().Format(time.DateTime), w.Source, len(w.Exercises))
				}
				fmt.Fprintf(tw, "(%d of %d)\n", len(workouts), page.Total)
			case "history":
				page, err := svc.ListHistory(ctx, service.HistoryQuery{Limit: limit})
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "ID\tPERFORMED\tDURATION\tWORKOUT\tNOTES")
				for _, h := range page.Data {
					workout := "-"
					if h.WorkoutID != nil {
						workout = *h.WorkoutID
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", h.ID, h.PerformedAt.Local().Format(time.DateTime),
						time.Duration(h.DurationSeconds)*time.Second, workout, h.Notes)
				}
			case "exercises":
				exercises, page, err := svc.ListExercises(ctx, service.ExerciseQuery{Limit: limit})
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tEQUIPMENT")
				for _, e := range exercises {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Category, strings.Join(e.Equipment, ","))
				}
				fmt.Fprintf(tw, "(%d of %d)\n", len(exercises), page.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Rows to print")
	return cmd
}
