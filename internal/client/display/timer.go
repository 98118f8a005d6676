package display

import (
	"os"
	"strings"

	"repe/internal/timer"

	"golang.org/x/term"
)

const defaultWidth = 80

// TerminalWidth reports the width of stdout, or 80 when it is not a terminal
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// ProgressBar renders a single-line timer readout fitted to width
func ProgressBar(s timer.Snapshot, width int) string {
	if s.Mode != timer.Countdown {
		return "Elapsed " + Clock(s.Elapsed)
	}

	label := " " + Clock(s.Remaining) + " left"
	barWidth := width - len(label) - 2
	if barWidth < 10 {
		return strings.TrimSpace(label)
	}

	filled := 0
	if s.Duration > 0 {
		filled = int(float64(barWidth) * float64(s.Elapsed) / float64(s.Duration))
	}
	filled = min(max(filled, 0), barWidth)

	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]" + label
}
