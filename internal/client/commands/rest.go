package commands

import (
	"fmt"
	"strconv"
	"time"

	"repe/internal/client/display"
	"repe/internal/timer"
)

func (r *Registry) registerRestCommands() {
	r.Register(&Command{
		Name:        "rest",
		ShortName:   "r",
		Group:       groupRest,
		Description: "Start or control the rest timer",
		Usage:       "rest [seconds|stopwatch|pause|resume|stop|status|watch]",
		Handler:     restHandler,
	})
}

func restHandler(s Session, args []string) error {
	action := ""
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "pause":
		return withTimer(s, func(t *timer.Timer) error { return t.Pause() })
	case "resume":
		return withTimer(s, func(t *timer.Timer) error { return t.Start() })
	case "stop":
		return withTimer(s, func(t *timer.Timer) error {
			if err := t.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(s.Out(), display.Cyan("Stopped at %s", display.Clock(t.Snapshot().Elapsed)))
			return nil
		})
	case "status":
		return withTimer(s, func(t *timer.Timer) error {
			snap := t.Snapshot()
			fmt.Fprintf(s.Out(), "%s %s\n", display.Yellow("%s", snap.State), display.ProgressBar(snap, display.TerminalWidth()-len(snap.State.String())-1))
			return nil
		})
	case "watch":
		return watchTimer(s)
	case "stopwatch", "sw":
		return startTimer(s, timer.Options{Mode: timer.Stopwatch})
	}

	seconds := s.GetRestSeconds()
	if action != "" {
		n, err := strconv.Atoi(action)
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: rest [seconds|stopwatch|pause|resume|stop|status|watch]")
		}
		seconds = n
	}
	if seconds <= 0 {
		return fmt.Errorf("no rest length set, pass seconds or set 'prefs rest <seconds>'")
	}

	out := s.Out()
	return startTimer(s, timer.Options{
		Mode:     timer.Countdown,
		Duration: time.Duration(seconds) * time.Second,
		OnComplete: func(timer.Snapshot) {
			fmt.Fprintln(out, "\a"+display.Green("Rest over"))
		},
	})
}

// startTimer replaces any running timer with a new one
func startTimer(s Session, opts timer.Options) error {
	if old := s.GetTimer(); old != nil {
		old.Close()
	}

	t, err := timer.New(opts)
	if err != nil {
		return err
	}
	if err := t.Start(); err != nil {
		return err
	}
	s.SetTimer(t)

	if opts.Mode == timer.Countdown {
		fmt.Fprintln(s.Out(), display.Green("Rest timer: %s", display.Clock(opts.Duration)))
	} else {
		fmt.Fprintln(s.Out(), display.Green("Stopwatch started"))
	}
	return nil
}

func withTimer(s Session, fn func(*timer.Timer) error) error {
	t := s.GetTimer()
	if t == nil {
		return fmt.Errorf("no timer, use 'rest [seconds]'")
	}
	return fn(t)
}

// watchTimer redraws the timer in place until it leaves the running state
func watchTimer(s Session) error {
	return withTimer(s, func(t *timer.Timer) error {
		if t.Snapshot().Mode != timer.Countdown {
			return fmt.Errorf("watch needs a countdown, use 'rest status' for the stopwatch")
		}
		out := s.Out()
		ticker := time.NewTicker(timer.NotifyInterval)
		defer ticker.Stop()

		width := display.TerminalWidth() - 1
		for {
			snap := t.Snapshot()
			fmt.Fprintf(out, "\r%s", display.ProgressBar(snap, width))
			if snap.State != timer.Running {
				fmt.Fprintln(out)
				return nil
			}

			select {
			case <-s.Context().Done():
				fmt.Fprintln(out)
				return s.Context().Err()
			case <-ticker.C:
			}
		}
	})
}
