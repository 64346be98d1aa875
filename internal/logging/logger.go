package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

// Logger provides operator-facing output with redaction support
type Logger struct {
	debug   bool
	noColor bool

	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// New creates a logger printing operator guidance to stdout and warnings,
// errors and debug lines to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriters(os.Stdout, os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger that writes everything to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return NewWithWriters(w, w, debug, noColor)
}

// NewWithWriters creates a logger writing guidance to out and diagnostics to errOut
func NewWithWriters(out, errOut io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     out,
		errOut:  errOut,
	}
}

// Info logs a success message
func (l *Logger) Info(format string, args ...interface{}) {
	l.markTo(l.out, colorGreen, "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.markTo(l.errOut, colorYellow, "!", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.markTo(l.errOut, colorRed, "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.markTo(l.errOut, colorCyan, "[DEBUG]", format, args...)
}

// Step announces the next stage of a workflow
func (l *Logger) Step(format string, args ...interface{}) {
	l.line(colorYellow, fmt.Sprintf(format, args...))
}

// Heading prints a title followed by an underline of matching width
func (l *Logger) Heading(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	l.line(colorBlue, title)
	l.line("", strings.Repeat("=", len([]rune(title))))
}

// Detail prints an indented, highlighted line
func (l *Logger) Detail(format string, args ...interface{}) {
	l.line(colorBlue, fmt.Sprintf(format, args...))
}

// Print writes a plain line
func (l *Logger) Print(format string, args ...interface{}) {
	l.line("", fmt.Sprintf(format, args...))
}

func (l *Logger) markTo(w io.Writer, color, symbol, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.noColor {
		l.write(w, fmt.Sprintf("%s %s\n", symbol, msg))
		return
	}
	l.write(w, fmt.Sprintf("%s%s%s %s\n", color, symbol, colorReset, msg))
}

func (l *Logger) line(color, msg string) {
	if l.noColor || color == "" {
		l.write(l.out, msg+"\n")
		return
	}
	l.write(l.out, color+msg+colorReset+"\n")
}

func (l *Logger) write(w io.Writer, s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(w, s)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
