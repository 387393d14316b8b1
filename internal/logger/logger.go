// Package logger holds the progress loggers used by the gawriter commands.
// Every Logger also satisfies analytics.Logger, so writer diagnostics such
// as dropped orphan items end up in the same stream as command output.
package logger

import "io"

type Logger interface {
	Logf(format string, args ...interface{})
	Log(msg string)
}

// Spinner displays progress while pages are scanned or rewritten.
type Spinner interface {
	// Update changes the spinner text while running.
	Update(text string)
	// Stop stops the spinner and prints a success indicator.
	Stop()
	// Fail stops the spinner and prints a failure indicator.
	Fail()
}

// SpinnerLogger is a Logger that can show a spinner.
type SpinnerLogger interface {
	Logger
	StartSpinner(text string) Spinner
}

type noOpSpinner struct{}

func (n *noOpSpinner) Update(text string) {}
func (n *noOpSpinner) Stop()              {}
func (n *noOpSpinner) Fail()              {}

// StartSpinner starts a spinner on l when it supports one. Other loggers get
// the text logged once and a spinner that does nothing.
func StartSpinner(l Logger, text string) Spinner {
	if sl, ok := l.(SpinnerLogger); ok {
		return sl.StartSpinner(text)
	}
	l.Log(text)
	return &noOpSpinner{}
}

// New picks the logger for a command: the spinner logger on a terminal,
// plain lines otherwise.
func New(out io.Writer, quiet bool) Logger {
	if quiet {
		return Discard
	}
	if IsInteractive() {
		return NewUILogger(out)
	}
	return NewStdoutLogger(out)
}
