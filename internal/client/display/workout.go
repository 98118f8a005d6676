package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"repe/internal/server/core"
)

const timeLayout = "2006-01-02 15:04"

// RenderWorkout prints a workout with its exercises, sets and totals
func RenderWorkout(w io.Writer, d *core.WorkoutDetail, units string) {
	fmt.Fprintf(w, "%s  %s\n", Bold("%s", d.Name), Cyan("%s", d.StartedAt.Local().Format(timeLayout)))
	fmt.Fprintf(w, "ID: %s  Source: %s\n\n", d.ID, d.Source)

	for _, we := range d.Exercises {
		target := ""
		if we.TargetSets != nil {
			target = fmt.Sprintf(" (target %d sets", *we.TargetSets)
			if we.TargetReps != nil {
				target += fmt.Sprintf(" x %d", *we.TargetReps)
			}
			target += ")"
		}
		fmt.Fprintf(w, "%s %s%s  %s\n", Yellow("%d.", we.OrderIndex+1), we.Exercise.Name, target, Magenta("[%s]", ShortID(we.ID)))

		if len(we.Sets) == 0 {
			fmt.Fprintln(w, "   no sets")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for i, s := range we.Sets {
			rpe := ""
			if s.RPE != nil {
				rpe = fmt.Sprintf("@%g", *s.RPE)
			}
			fmt.Fprintf(tw, "   %d\t%d x %s\t%s\t%s\n", i+1, s.Reps, Weight(s.Weight, units), rpe, Magenta("%s", ShortID(s.ID)))
		}
		tw.Flush()
	}

	t := d.Totals
	fmt.Fprintf(w, "\n%s %d sets, %d reps, volume %s", Cyan("Totals:"), t.Sets, t.Reps, Weight(t.Volume, units))
	if t.AverageRPE != nil {
		fmt.Fprintf(w, ", avg RPE %.1f", *t.AverageRPE)
	}
	fmt.Fprintln(w)
}

// RenderWorkouts prints a workout list
func RenderWorkouts(w io.Writer, workouts []core.Workout, page core.Pagination) {
	if len(workouts) == 0 {
		fmt.Fprintln(w, "No workouts found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tStarted\tExercises")
	fmt.Fprintln(tw, strings.Repeat("-", 60))
	for _, wo := range workouts {
		names := make([]string, 0, len(wo.Exercises))
		for _, e := range wo.Exercises {
			names = append(names, e.Name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ShortID(wo.ID), wo.Name, wo.StartedAt.Local().Format(timeLayout), strings.Join(names, ", "))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nShowing %d-%d of %d\n", page.Offset+1, page.Offset+len(workouts), page.Total)
}

// RenderExercises prints exercise catalog rows
func RenderExercises(w io.Writer, exercises []core.Exercise, page core.Pagination) {
	if len(exercises) == 0 {
		fmt.Fprintln(w, "No exercises found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tCategory\tEquipment")
	for _, e := range exercises {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ShortID(e.ID), e.Name, e.Category, strings.Join(e.Equipment, ", "))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d\n", len(exercises), page.Total)
}

// RenderHistory prints history entries, newest first as received
func RenderHistory(w io.Writer, entries []core.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "When\tDuration\tWorkout\tNotes")
	for _, h := range entries {
		workout := "-"
		if h.WorkoutID != nil {
			workout = ShortID(*h.WorkoutID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.PerformedAt.Local().Format(timeLayout), Clock(secondsToDuration(h.DurationSeconds)), workout, h.Notes)
	}
	tw.Flush()
}
