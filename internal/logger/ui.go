package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// UILogger routes log lines into the running spinner, or prints them when
// no spinner is active.
type UILogger struct {
	mu      sync.Mutex
	out     io.Writer
	spinner *uiSpinner
}

func NewUILogger(out io.Writer) *UILogger {
	if out == nil {
		out = os.Stderr
	}
	return &UILogger{out: out}
}

// IsInteractive reports whether stderr is attached to a terminal.
func IsInteractive() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func (l *UILogger) Logf(format string, args ...interface{}) {
	l.write(fmt.Sprintf(format, args...), false)
}

func (l *UILogger) Log(msg string) {
	l.write(msg, true)
}

func (l *UILogger) write(text string, newline bool) {
	l.mu.Lock()
	s := l.spinner
	l.mu.Unlock()
	if s != nil {
		s.Update(oneLine(text))
		return
	}
	if newline {
		fmt.Fprintln(l.out, text)
		return
	}
	fmt.Fprint(l.out, text)
}

func oneLine(text string) string {
	return strings.ReplaceAll(strings.TrimSuffix(text, "\n"), "\n", " ")
}

type uiSpinner struct {
	parent  *UILogger
	mu      sync.Mutex
	text    string
	stopped chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (l *UILogger) StartSpinner(text string) Spinner {
	l.mu.Lock()
	prev := l.spinner
	s := &uiSpinner{parent: l, text: text, stopped: make(chan struct{}), done: make(chan struct{})}
	l.spinner = s
	l.mu.Unlock()
	if prev != nil {
		prev.finish("")
	}
	go s.loop()
	return s
}

func (s *uiSpinner) loop() {
	defer close(s.done)
	frames := []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	out := s.parent.out
	for i := 0; ; i++ {
		select {
		case <-s.stopped:
			fmt.Fprint(out, "\r\033[2K")
			return
		case <-ticker.C:
			s.mu.Lock()
			text := s.text
			s.mu.Unlock()
			fmt.Fprintf(out, "\r\033[2K%c %s", frames[i%len(frames)], text)
		}
	}
}

func (s *uiSpinner) Update(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// finish stops the animation, waits for the line to clear and prints a
// final status line when mark is set.
func (s *uiSpinner) finish(mark string) {
	s.once.Do(func() {
		close(s.stopped)
		<-s.done
		s.parent.mu.Lock()
		if s.parent.spinner == s {
			s.parent.spinner = nil
		}
		s.parent.mu.Unlock()
		if mark != "" {
			s.mu.Lock()
			text := s.text
			s.mu.Unlock()
			fmt.Fprintf(s.parent.out, "%s %s\n", mark, text)
		}
	})
}

func (s *uiSpinner) Stop() { s.finish("✓") }
func (s *uiSpinner) Fail() { s.finish("✗") }
