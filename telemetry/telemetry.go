// Package telemetry provides the structured logging surface used
// throughout this module. It mirrors the call-site idiom of a
// leveled, field-based logger (WithModule, Info/Warn/Error plus typed
// field constructors) and is backed by github.com/rs/zerolog, the
// de facto standard structured-logging library in the Go ecosystem.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Field is one structured key/value attached to a log line.
type Field struct {
	key   string
	apply func(e *zerolog.Event)
}

func String(key, value string) Field {
	return Field{key: key, apply: func(e *zerolog.Event) { e.Str(key, value) }}
}

func Int(key string, value int) Field {
	return Field{key: key, apply: func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{key: key, apply: func(e *zerolog.Event) { e.Int64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{key: key, apply: func(e *zerolog.Event) { e.Float64(key, value) }}
}

func Err(err error) Field {
	return Field{key: "error", apply: func(e *zerolog.Event) { e.Err(err) }}
}

// Logger is the leveled, structured logging surface components in
// this module depend on.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithModule returns a derived Logger that tags every line with
	// module=name, the way each pipeline stage names itself in logs.
	WithModule(name string) Logger
}

// zlogger is the zerolog-backed Logger implementation.
type zlogger struct {
	z zerolog.Logger
}

// New builds a Logger writing to w. If w is a terminal, output is a
// human-readable console writer; otherwise it's newline-delimited
// JSON, suitable for log aggregation.
func New(w io.Writer, level zerolog.Level) Logger {
	var out io.Writer = w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &zlogger{z: z}
}

// Default returns a Logger writing to stderr at info level, the
// module's default when the caller doesn't configure one explicitly.
func Default() Logger {
	return New(os.Stderr, zerolog.InfoLevel)
}

func apply(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		f.apply(e)
	}
	return e
}

func (l *zlogger) Debug(msg string, fields ...Field) { apply(l.z.Debug(), fields).Msg(msg) }
func (l *zlogger) Info(msg string, fields ...Field)  { apply(l.z.Info(), fields).Msg(msg) }
func (l *zlogger) Warn(msg string, fields ...Field)  { apply(l.z.Warn(), fields).Msg(msg) }
func (l *zlogger) Error(msg string, fields ...Field) { apply(l.z.Error(), fields).Msg(msg) }

func (l *zlogger) WithModule(name string) Logger {
	return &zlogger{z: l.z.With().Str("module", name).Logger()}
}
