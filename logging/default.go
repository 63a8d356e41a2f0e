package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
)

// DefaultLogger writes one line per entry to a single stream. Stdout is left
// to command output, so the default stream is stderr.
// Warn -> yellow
// Error -> red
// Fatal -> bold red, then exit
type DefaultLogger struct {
	out         *log.Logger
	level       Level
	fields      Fields
	useColors   bool
	exitOnFatal bool
}

// NewDefaultLogger logs to stderr, colored when stderr is a terminal
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		out:         log.New(os.Stderr, "", log.LstdFlags),
		level:       InfoLevel,
		fields:      make(Fields),
		useColors:   isTerminal(os.Stderr),
		exitOnFatal: true,
	}
}

// NewWriterLogger sends every level to w without colors or timestamps.
// Fatal does not exit. Used for log files and by tests.
func NewWriterLogger(w io.Writer) *DefaultLogger {
	return &DefaultLogger{
		out:    log.New(w, "", 0),
		level:  InfoLevel,
		fields: make(Fields),
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatMessage renders "[LEVEL] msg: err key=value ..." with keys sorted
func (d *DefaultLogger) formatMessage(level Level, err error, msg string, fields ...Fields) string {
	all := make(Fields, len(d.fields))
	maps.Copy(all, d.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}
	for _, key := range slices.Sorted(maps.Keys(all)) {
		fmt.Fprintf(&b, " %s=%v", key, all[key])
	}

	if !d.useColors {
		return b.String()
	}
	switch level {
	case WarnLevel:
		return ColorYellow + b.String() + ColorReset
	case ErrorLevel:
		return ColorRed + b.String() + ColorReset
	case FatalLevel:
		return ColorBold + ColorRed + b.String() + ColorReset
	}
	return b.String()
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < d.level {
		return
	}

	d.out.Println(d.formatMessage(level, err, msg, fields...))
	if level == FatalLevel && d.exitOnFatal {
		os.Exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	child := *d
	child.fields = make(Fields, len(d.fields)+len(fields))
	maps.Copy(child.fields, d.fields)
	maps.Copy(child.fields, fields)
	return &child
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything. Installed by SetGlobalLogger(nil).
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
