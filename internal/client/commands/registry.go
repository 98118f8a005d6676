package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"repe/internal/client/api"
	"repe/internal/client/display"
	"repe/internal/filestore"
	"repe/internal/timer"
)

// ErrExit is returned by Execute when the user asks to leave
var ErrExit = errors.New("exit requested")

type Session interface {
	Context() context.Context
	Out() io.Writer
	GetAPIBaseURL() string
	SetAPIBaseURL(string)
	GetClient() *api.Client
	GetCurrentWorkout() string
	SetCurrentWorkout(string)
	GetHistoryCursor() string
	SetHistoryCursor(string)
	GetUnits() string
	SetUnits(string)
	GetRestSeconds() int
	SetRestSeconds(int)
	GetTimer() *timer.Timer
	SetTimer(*timer.Timer)
	Drafts() *filestore.Store[Draft]
	IsVerbose() bool
}

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Group       string
	Description string
	Usage       string
	Handler     func(Session, []string) error
}

// Registry manages command registration and execution
type Registry struct {
	session  Session
	commands map[string]*Command
}

func NewRegistry(session Session) *Registry {
	r := &Registry{
		session:  session,
		commands: make(map[string]*Command),
	}

	// Register all commands
	r.registerWorkoutCommands()
	r.registerExerciseCommands()
	r.registerHistoryCommands()
	r.registerRestCommands()
	r.registerSyncCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Group:       groupUtility,
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})

	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Group:       groupUtility,
		Description: "Exit the client",
		Usage:       "exit",
		Handler:     func(Session, []string) error { return ErrExit },
	})

	return r
}

const (
	groupWorkout  = "Workout Commands"
	groupExercise = "Exercise Commands"
	groupHistory  = "History Commands"
	groupRest     = "Rest Timer"
	groupSync     = "Offline Queue"
	groupUtility  = "Utility Commands"
)

var groupOrder = []string{groupWorkout, groupExercise, groupHistory, groupRest, groupSync, groupUtility}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line. Only ErrExit is returned; other errors are printed.
func (r *Registry) Execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmdName := parts[0]
	args := parts[1:]
	out := r.session.Out()

	cmd, exists := r.commands[cmdName]
	if !exists {
		fmt.Fprintln(out, display.Red("Unknown command: %s", cmdName))
		fmt.Fprintln(out, "Type 'help' for available commands")
		return nil
	}

	r.session.GetClient().SetVerbose(r.session.IsVerbose())

	err := cmd.Handler(r.session, args)
	switch {
	case err == nil:
	case errors.Is(err, ErrExit):
		return err
	case errors.Is(err, api.ErrQueued):
		fmt.Fprintln(out, display.Yellow("%s; run 'sync' once the server is back", err))
	default:
		fmt.Fprintln(out, display.Red("Error: %s", err))
	}
	return nil
}

func (r *Registry) helpHandler(s Session, args []string) error {
	out := s.Out()
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "\n%s - %s\n", display.Cyan("%s", cmd.Name), cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(out, "Short form: %s\n", display.Cyan("%s", cmd.ShortName))
		}
		fmt.Fprintf(out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	groups := make(map[string][]*Command)
	for name, cmd := range r.commands {
		if name == cmd.Name {
			groups[cmd.Group] = append(groups[cmd.Group], cmd)
		}
	}

	fmt.Fprintf(out, "\n%s\n\n", display.Cyan("Available Commands:"))
	for _, group := range groupOrder {
		cmds := groups[group]
		if len(cmds) == 0 {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		fmt.Fprintln(out, display.Yellow("%s:", group))
		for _, cmd := range cmds {
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = "[" + display.Cyan("%s", cmd.ShortName) + "] "
			}
			fmt.Fprintf(out, "  %s%-14s %s\n", shortPart, cmd.Name, cmd.Description)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Type 'help <command>' for detailed usage")
	fmt.Fprintln(out, "Add '-v' to any command for verbose output")
	return nil
}
