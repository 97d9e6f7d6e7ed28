package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

// Log flags
const (
	LstdFlags     = log.LstdFlags
	Lmicroseconds = log.Lmicroseconds
)

// Logger wraps the standard log.Logger with levelled, optionally coloured output
type Logger struct {
	*log.Logger
	verbose bool
	plain   bool
	dropped atomic.Uint64
}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	debugColor   = color.New(color.Faint)
)

// New creates a new logger writing to stdout
func New() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// NewWriter creates a new logger that writes plain text to the provided writer
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
		plain:  true,
	}
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.Logger.SetOutput(w)
	l.plain = w != os.Stdout && w != os.Stderr
}

// SetFlags sets the output flags for the logger
func (l *Logger) SetFlags(flag int) {
	l.Logger.SetFlags(flag)
}

// SetVerbose enables Debugf output
func (l *Logger) SetVerbose(v bool) {
	l.verbose = v
}

func (l *Logger) emit(c *color.Color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.plain {
		msg = c.Sprint(msg)
	}
	if err := l.Logger.Output(3, msg); err != nil {
		l.dropped.Add(1)
	}
}

// Dropped returns how many lines failed to reach the output
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Infof logs a progress or status line
func (l *Logger) Infof(format string, args ...interface{}) {
	l.emit(infoColor, format, args...)
}

// Successf logs a completed action, such as a found or saved address
func (l *Logger) Successf(format string, args ...interface{}) {
	l.emit(successColor, format, args...)
}

// Warnf logs a recoverable problem
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.emit(warnColor, format, args...)
}

// Errorf logs a failure
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.emit(errorColor, format, args...)
}

// Debugf logs only when verbose output is enabled
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		l.emit(debugColor, format, args...)
	}
}
