package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Quiet disables spinners and progress bars, for scripted output.
var Quiet = false

// Spinner wraps the spinner library for consistent styling. Spinners draw
// on stderr so piped stdout stays clean.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	charSet := spinner.CharSets[14] // ⣾⣽⣻⢿⡿⣟⣯⣷
	if !UseUnicode {
		charSet = spinner.CharSets[9] // |/-\
	}

	s := spinner.New(charSet, 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if UseColors {
		s.Color("cyan") //nolint:errcheck
	}

	return &Spinner{s: s}
}

// Start starts the spinner.
func (sp *Spinner) Start() {
	if !Quiet {
		sp.s.Start()
	}
}

// Stop stops the spinner.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// Success stops the spinner with a success message.
func (sp *Spinner) Success(message string) {
	sp.s.Stop()
	SuccessMsg(message)
}

// Error stops the spinner with an error message.
func (sp *Spinner) Error(message string) {
	sp.s.Stop()
	ErrorMsg(message)
}

// UpdateMessage updates the spinner message.
func (sp *Spinner) UpdateMessage(message string) {
	sp.s.Lock()
	sp.s.Suffix = " " + message
	sp.s.Unlock()
}

// WithSpinner runs fn while a spinner shows message. The spinner is cleared
// afterwards; reporting the outcome is left to the caller.
func WithSpinner(message string, fn func() error) error {
	sp := NewSpinner(message)
	sp.Start()
	defer sp.Stop()

	return fn()
}
