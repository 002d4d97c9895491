package sim

import (
	"reflect"

	"go.uber.org/zap"
)

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger *zap.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *zap.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger

	return h
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

	fields := []zap.Field{
		zap.Float64("time", float64(evt.Time())),
		zap.String("event", reflect.TypeOf(evt).String()),
	}

	if named, ok := evt.Handler().(Named); ok {
		fields = append(fields, zap.String("handler", named.Name()))
	}

	h.logger.Debug("event", fields...)
}
