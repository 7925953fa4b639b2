package sim

import (
	"log/slog"
	"reflect"
)

// EventLogger is an hook that logs every event an engine is about to handle.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger returns a new EventLogger which writes into the logger at
// debug level.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	attrs := []any{
		"tick", uint64(evt.Time()),
		"event", reflect.TypeOf(evt).String(),
	}

	if named, ok := evt.Handler().(Named); ok {
		attrs = append(attrs, "handler", named.Name())
	}

	h.logger.Debug("event", attrs...)
}
