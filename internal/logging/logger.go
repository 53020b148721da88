package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with a key/value field API.
type Logger struct {
	zl     zerolog.Logger
	fields []interface{}
}

var global = NewDevelopment()

// NewProduction creates a JSON logger on stdout at info level.
func NewProduction() *Logger {
	return NewWithWriter(os.Stdout, zerolog.InfoLevel)
}

// NewDevelopment creates a console logger on stdout at debug level.
func NewDevelopment() *Logger {
	return NewWithWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, zerolog.DebugLevel)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(logger *Logger) {
	if logger != nil {
		global = logger
	}
}

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// write emits msg with the stored fields followed by the call fields.
// Keys that are not strings are skipped along with their value.
func (l *Logger) write(e *zerolog.Event, msg string, fields []interface{}) {
	if e == nil {
		return
	}
	appendFields(e, l.fields)
	appendFields(e, fields)
	e.Msg(msg)
}

func appendFields(e *zerolog.Event, fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			if v == nil {
				e.Interface(key, nil)
			} else {
				e.Str(key, v.Error())
			}
		case string:
			e.Str(key, v)
		case time.Duration:
			e.Dur(key, v)
		default:
			e.Interface(key, v)
		}
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...interface{}) { l.write(l.zl.Debug(), msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...interface{}) { l.write(l.zl.Info(), msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...interface{}) { l.write(l.zl.Warn(), msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...interface{}) { l.write(l.zl.Error(), msg, fields) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.write(l.zl.Fatal(), msg, fields) }

// With returns a child logger carrying additional fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{zl: l.zl, fields: merged}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// WithContext returns a logger carrying the request fields stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Debug logs a debug message using the global logger.
func Debug(msg string, fields ...interface{}) { global.Debug(msg, fields...) }

// Info logs an info message using the global logger.
func Info(msg string, fields ...interface{}) { global.Info(msg, fields...) }

// Warn logs a warning message using the global logger.
func Warn(msg string, fields ...interface{}) { global.Warn(msg, fields...) }

// Error logs an error message using the global logger.
func Error(msg string, fields ...interface{}) { global.Error(msg, fields...) }

// Fatal logs a fatal message using the global logger and exits.
func Fatal(msg string, fields ...interface{}) { global.Fatal(msg, fields...) }

// With creates a child of the global logger.
func With(fields ...interface{}) *Logger { return global.With(fields...) }
