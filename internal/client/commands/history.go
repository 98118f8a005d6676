package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"repe/internal/client/display"
	"repe/internal/server/core"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 10

func (r *Registry) registerHistoryCommands() {
	r.Register(&Command{
		Name:        "log",
		Group:       groupHistory,
		Description: "Log a completed session, linked to the current workout if any",
		Usage:       "log <minutes> [notes]",
		Handler:     logHistoryHandler,
	})

	r.Register(&Command{
		Name:        "history",
		ShortName:   "hi",
		Group:       groupHistory,
		Description: "Show recent history, newest first",
		Usage:       "history [limit]",
		Handler:     historyHandler,
	})

	r.Register(&Command{
		Name:        "more",
		ShortName:   "m",
		Group:       groupHistory,
		Description: "Show the next page of history",
		Usage:       "more [limit]",
		Handler:     moreHistoryHandler,
	})

	r.Register(&Command{
		Name:        "stats",
		Group:       groupHistory,
		Description: "Show history totals",
		Usage:       "stats",
		Handler:     statsHandler,
	})

	r.Register(&Command{
		Name:        "prefs",
		ShortName:   "p",
		Group:       groupHistory,
		Description: "Show or change preferences",
		Usage:       "prefs [units metric|imperial] [rest <seconds>]",
		Handler:     prefsHandler,
	})
}

func logHistoryHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: log <minutes> [notes]")
	}
	minutes, err := strconv.ParseFloat(args[0], 64)
	if err != nil || minutes < 0 {
		return fmt.Errorf("minutes must be a non-negative number")
	}

	// A client ID lets a queued entry replay without duplicating
	req := core.HistoryRequest{
		ID:              uuid.NewString(),
		WorkoutID:       s.GetCurrentWorkout(),
		PerformedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		DurationSeconds: int(minutes * 60),
		Notes:           strings.Join(args[1:], " "),
	}

	entry, err := s.GetClient().CreateHistory(s.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("Logged %s", display.Clock(time.Duration(entry.DurationSeconds)*time.Second)))
	return nil
}

func historyHandler(s Session, args []string) error {
	s.SetHistoryCursor("")
	return showHistoryPage(s, args)
}

func moreHistoryHandler(s Session, args []string) error {
	if s.GetHistoryCursor() == "" {
		return fmt.Errorf("no more history, run 'history' to start over")
	}
	return showHistoryPage(s, args)
}

func showHistoryPage(s Session, args []string) error {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("limit must be a positive integer")
		}
		limit = n
	}

	page, err := s.GetClient().ListHistory(s.Context(), s.GetHistoryCursor(), limit)
	if err != nil {
		return err
	}
	display.RenderHistory(s.Out(), page.Data)

	if page.HasMore {
		s.SetHistoryCursor(page.Cursor)
		fmt.Fprintln(s.Out(), display.Cyan("More available, type 'more'"))
	} else {
		s.SetHistoryCursor("")
	}
	return nil
}

func statsHandler(s Session, args []string) error {
	stats, err := s.GetClient().HistoryStats(s.Context())
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintln(out, display.Cyan("History:"))
	fmt.Fprintf(out, "  Sessions: %d\n", stats.Count)
	fmt.Fprintf(out, "  Total:    %s\n", display.Clock(time.Duration(stats.TotalDurationSeconds)*time.Second))
	fmt.Fprintf(out, "  Average:  %s\n", display.Clock(time.Duration(stats.AverageDurationSeconds*float64(time.Second))))
	return nil
}

func prefsHandler(s Session, args []string) error {
	c := s.GetClient()
	settings, err := c.GetPreferences(s.Context())
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if len(args)%2 != 0 {
			return fmt.Errorf("usage: prefs [units metric|imperial] [rest <seconds>]")
		}
		prefs := settings.Preferences
		req := core.PreferencesRequest{Units: settings.Units, Preferences: &prefs}
		for i := 0; i < len(args); i += 2 {
			switch args[i] {
			case "units":
				req.Units = args[i+1]
			case "rest":
				n, err := strconv.Atoi(args[i+1])
				if err != nil {
					return fmt.Errorf("rest must be a number of seconds")
				}
				prefs.RestTimerSeconds = n
			default:
				return fmt.Errorf("unknown preference: %s", args[i])
			}
		}

		if settings, err = c.SavePreferences(s.Context(), req); err != nil {
			return err
		}
	}

	s.SetUnits(settings.Units)
	s.SetRestSeconds(settings.Preferences.RestTimerSeconds)

	out := s.Out()
	fmt.Fprintln(out, display.Cyan("Preferences:"))
	fmt.Fprintf(out, "  Units:       %s\n", settings.Units)
	fmt.Fprintf(out, "  Rest timer:  %ds\n", settings.Preferences.RestTimerSeconds)
	fmt.Fprintf(out, "  Default RPE: %g\n", settings.Preferences.DefaultRPE)
	fmt.Fprintf(out, "  Increment:   %s\n", display.Weight(settings.Preferences.WeightIncrement, settings.Units))
	fmt.Fprintf(out, "  Theme:       %s\n", settings.Preferences.Theme)
	return nil
}
