// Package main implements the interactive repe client: record a workout
// draft, save it to the server, browse history and run the rest timer.
// Writes made while the server is down are queued and replayed with 'sync'.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"repe/internal/client/commands"
	"repe/internal/client/display"
	"repe/internal/client/offline"
	"repe/internal/client/session"
	"repe/internal/config"
	"repe/internal/timer"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, display.Red("%s", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile, token string

	cmd := &cobra.Command{
		Use:           "repe-client",
		Short:         "Interactive workout logging client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, token)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Config file (default repe.yaml in the user config dir or .)")
	f.String("url", "", "API base URL")
	f.String("data-dir", "", "Directory for the offline queue, draft and history")
	f.StringVar(&token, "token", os.Getenv("REPE_TOKEN"), "Bearer token for servers that require auth")
	_ = v.BindPFlag(config.KeyClientAPIURL, f.Lookup("url"))
	_ = v.BindPFlag(config.KeyClientDataDir, f.Lookup("data-dir"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config, token string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	if err := os.MkdirAll(cfg.Client.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	queue, err := offline.Open(filepath.Join(cfg.Client.DataDir, "queue"))
	if err != nil {
		return err
	}
	defer queue.Close()

	s := session.New(ctx, cfg.Client.APIURL, filepath.Join(cfg.Client.DataDir, "draft.json"))
	defer s.Close()
	s.Client.AttachQueue(queue)
	s.Client.SetToken(token)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("repe"),
		HistoryFile:     filepath.Join(cfg.Client.DataDir, "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	// Timer callbacks print while the prompt is active
	s.Writer = rl.Stdout()
	s.Client.Out = rl.Stdout()

	fmt.Fprintln(s.Out(), display.Cyan("repe workout client"))
	fmt.Fprintln(s.Out(), display.Cyan("API: %s", s.APIBaseURL))
	if pending, err := queue.Pending(); err == nil && len(pending) > 0 {
		fmt.Fprintln(s.Out(), display.Yellow("%d queued change(s), run 'sync' to send", len(pending)))
	}
	fmt.Fprintln(s.Out(), "Type 'help' for commands")
	fmt.Fprintln(s.Out())

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		} else {
			s.Verbose = false
		}

		if err := registry.Execute(line); errors.Is(err, commands.ErrExit) {
			break
		}
	}
	return nil
}

func buildPrompt(s *session.Session) string {
	var parts []string

	if d, ok, err := s.Drafts().Load(); err == nil && ok {
		parts = append(parts, display.Magenta("%s (%d)", d.Name, len(d.Exercises)))
	} else if id := s.GetCurrentWorkout(); id != "" {
		parts = append(parts, display.ShortID(id))
	}

	if t := s.GetTimer(); t != nil {
		snap := t.Snapshot()
		switch {
		case snap.State == timer.Running && snap.Mode == timer.Countdown:
			parts = append(parts, display.Green("rest %s", display.Clock(snap.Remaining)))
		case snap.State == timer.Running:
			parts = append(parts, display.Green("%s", display.Clock(snap.Elapsed)))
		case snap.State == timer.Paused:
			parts = append(parts, display.Yellow("paused"))
		}
	}

	prompt := "repe"
	if len(parts) > 0 {
		prompt += " [" + strings.Join(parts, " | ") + "]"
	}
	return display.Prompt(prompt)
}
