package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a leveled, key/value structured logger
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

type zeroLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a JSON logger on stdout with the specified level
func NewLogger(level string) Logger {
	return New(os.Stdout, level, false)
}

// NewDevelopmentLogger creates a human readable console logger
func NewDevelopmentLogger(level string) Logger {
	return New(os.Stdout, level, true)
}

// New creates a logger writing to w. When pretty is set, output goes through
// zerolog's console writer instead of raw JSON.
func New(w io.Writer, level string, pretty bool) Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &zeroLogger{zl: zl}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *zeroLogger) Debug(msg string, keyvals ...interface{}) {
	withFields(l.zl.Debug(), keyvals).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keyvals ...interface{}) {
	withFields(l.zl.Info(), keyvals).Msg(msg)
}

func (l *zeroLogger) Warn(msg string, keyvals ...interface{}) {
	withFields(l.zl.Warn(), keyvals).Msg(msg)
}

func (l *zeroLogger) Error(msg string, keyvals ...interface{}) {
	withFields(l.zl.Error(), keyvals).Msg(msg)
}

// withFields attaches alternating key/value pairs to the event. A trailing key
// without a value is recorded as "missing".
func withFields(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}

		if i+1 >= len(keyvals) {
			e = e.Str(key, "missing")
			break
		}

		switch v := keyvals[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}

	return e
}
