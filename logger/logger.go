package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger wraps zerolog.Logger to implement the Logger interface.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

// New creates a ZeroLogger with the given level ("debug", "info", ...).
// If pretty is true, output is formatted for human readability.
func New(level string, pretty bool) *ZeroLogger {
	var l zerolog.Logger

	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(l zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{zlog: &l}
}

// WithContext returns a logger carrying the zerolog logger attached to ctx,
// or the receiver when ctx holds none.
func (l *ZeroLogger) WithContext(ctx any) Logger {
	if c, ok := ctx.(context.Context); ok {
		zl := zerolog.Ctx(c)
		if zl == nil || zl.GetLevel() == zerolog.Disabled {
			return l
		}
		return &ZeroLogger{zlog: zl}
	}
	return l
}

// WithFields returns a logger with additional fields attached to all entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log}
}

// Info creates an info-level log event.
func (l *ZeroLogger) Info() LogEvent { return &eventAdapter{event: l.zlog.Info()} }

// Error creates an error-level log event.
func (l *ZeroLogger) Error() LogEvent { return &eventAdapter{event: l.zlog.Error()} }

// Debug creates a debug-level log event.
func (l *ZeroLogger) Debug() LogEvent { return &eventAdapter{event: l.zlog.Debug()} }

// Warn creates a warn-level log event.
func (l *ZeroLogger) Warn() LogEvent { return &eventAdapter{event: l.zlog.Warn()} }
