// Package tui holds terminal UI setup shared by dock's interactive
// commands.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI forces a truecolor profile when CLICOLOR_FORCE=1 or
// COLORTERM=truecolor is set, so the picker renders in color under
// recorders and CI terminals that do not advertise it. It has no effect
// otherwise.
func InitializeTUI() {
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// ColorEnabled reports whether the stdout profile supports any color.
func ColorEnabled() bool {
	return termenv.NewOutput(os.Stdout).Profile != termenv.Ascii
}
