package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// eventAdapter adapts a zerolog event to the LogEvent interface.
type eventAdapter struct {
	event *zerolog.Event
}

func (e *eventAdapter) Msg(msg string) {
	e.event.Msg(msg)
}

func (e *eventAdapter) Msgf(format string, args ...any) {
	e.event.Msgf(format, args...)
}

func (e *eventAdapter) Err(err error) LogEvent {
	return &eventAdapter{event: e.event.Err(err)}
}

func (e *eventAdapter) Str(key, value string) LogEvent {
	return &eventAdapter{event: e.event.Str(key, value)}
}

func (e *eventAdapter) Int(key string, value int) LogEvent {
	return &eventAdapter{event: e.event.Int(key, value)}
}

func (e *eventAdapter) Int64(key string, value int64) LogEvent {
	return &eventAdapter{event: e.event.Int64(key, value)}
}

func (e *eventAdapter) Bool(key string, value bool) LogEvent {
	return &eventAdapter{event: e.event.Bool(key, value)}
}

func (e *eventAdapter) Dur(key string, d time.Duration) LogEvent {
	return &eventAdapter{event: e.event.Dur(key, d)}
}

func (e *eventAdapter) Interface(key string, i any) LogEvent {
	return &eventAdapter{event: e.event.Interface(key, i)}
}
