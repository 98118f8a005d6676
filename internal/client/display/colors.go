package display

import (
	"github.com/fatih/color"
)

// Terminal colors; fatih/color drops the escapes when stdout is not a terminal
var (
	Red     = color.New(color.FgRed).SprintfFunc()
	Green   = color.New(color.FgGreen).SprintfFunc()
	Yellow  = color.New(color.FgYellow).SprintfFunc()
	Blue    = color.New(color.FgBlue).SprintfFunc()
	Magenta = color.New(color.FgMagenta).SprintfFunc()
	Cyan    = color.New(color.FgCyan).SprintfFunc()
	Bold    = color.New(color.Bold).SprintfFunc()
)

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow("%s > ", text)
}
