package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used across the application.
// Key/value pairs are appended to the message as structured fields.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

type zerologLogger struct {
	log zerolog.Logger
}

// NewLogger creates a new logger writing JSON to stdout at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) Logger {
	var lvl zerolog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	default:
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()

	return &zerologLogger{log: zl}
}

// NewNopLogger returns a logger that discards everything. Used in tests.
func NewNopLogger() Logger {
	return &zerologLogger{log: zerolog.Nop()}
}

func (l *zerologLogger) Debug(msg string, keyvals ...interface{}) {
	withFields(l.log.Debug(), keyvals).Msg(msg)
}

func (l *zerologLogger) Info(msg string, keyvals ...interface{}) {
	withFields(l.log.Info(), keyvals).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, keyvals ...interface{}) {
	withFields(l.log.Warn(), keyvals).Msg(msg)
}

func (l *zerologLogger) Error(msg string, keyvals ...interface{}) {
	withFields(l.log.Error(), keyvals).Msg(msg)
}

func withFields(ev *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)

		if !ok {
			continue
		}

		ev = ev.Interface(key, keyvals[i+1])
	}

	return ev
}
