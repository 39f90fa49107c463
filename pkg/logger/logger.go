package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger keeps one charm logger per level so errors can go to a separate writer.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
}

func New() *Logger {
	return NewWithWriter(os.Stdout, os.Stderr)
}

// NewWithWriter routes info and warn lines to out and error lines to errOut.
func NewWithWriter(out, errOut io.Writer) *Logger {
	build := func(w io.Writer, level log.Level) *log.Logger {
		return log.NewWithOptions(w, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
		})
	}

	return &Logger{
		info:  build(out, log.InfoLevel),
		warn:  build(out, log.WarnLevel),
		error: build(errOut, log.ErrorLevel),
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.info.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.warn.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.error.Errorf(format, v...)
}
