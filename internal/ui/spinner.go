// Package ui provides terminal UI helpers.
package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Interactive reports whether stderr is attached to a terminal.
func Interactive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Spinner wraps a terminal spinner for loading states. It stays silent when
// stderr is not a terminal so piped output is not polluted.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
	running bool
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Spinner{s: s, enabled: Interactive()}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	if !sp.enabled || sp.running {
		return
	}
	sp.running = true
	sp.s.Start()
}

// Stop halts the spinner and clears the line. Safe to call more than once.
func (sp *Spinner) Stop() {
	if !sp.running {
		return
	}
	sp.running = false
	sp.s.Stop()
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	sp.Stop()
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "  ✓ %s\n", msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	sp.Stop()
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "  ✗ %s\n", msg)
}
