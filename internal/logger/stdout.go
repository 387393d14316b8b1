package logger

import (
	"fmt"
	"io"
	"os"
)

// StdoutLogger writes plain lines. Commands point it at stderr so rendered
// snippets on stdout stay clean.
type StdoutLogger struct {
	out io.Writer
}

func NewStdoutLogger(out io.Writer) *StdoutLogger {
	if out == nil {
		out = os.Stderr
	}
	return &StdoutLogger{out: out}
}

func (l *StdoutLogger) Logf(format string, args ...interface{}) { fmt.Fprintf(l.out, format, args...) }
func (l *StdoutLogger) Log(msg string)                          { fmt.Fprintln(l.out, msg) }

type discard struct{}

func (discard) Logf(string, ...interface{}) {}
func (discard) Log(string)                  {}

// Discard drops everything.
var Discard Logger = discard{}
