package dispatch

import (
	"context"
	"time"

	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/runtime/logging"
)

// Event describes one Handle call to hooks.
type Event struct {
	// Context is the context Handle was called with, including its span.
	Context context.Context
	// Size is the length of the inbound buffer in bytes.
	Size int
	// Decoded is false until the envelope header has been read. Kind, Origin
	// and Timestamp are only meaningful when it is true.
	Decoded   bool
	Kind      analytics.MessageKind
	Origin    string
	Timestamp int64
	StartedAt time.Time
	// Duration is set for OnDone and OnError.
	Duration time.Duration
}

// KindLabel returns the kind name, or "unknown" before decoding succeeded.
func (e Event) KindLabel() string {
	if !e.Decoded {
		return "unknown"
	}
	return e.Kind.String()
}

// Hooks are optional callbacks around Handle. Nil hooks are skipped.
type Hooks struct {
	OnStart func(ev Event)
	OnDone  func(ev Event)
	OnError func(ev Event, err error)
}

// Merge returns hooks that call h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnStart: chainEventHooks(h.OnStart, other.OnStart),
		OnDone:  chainEventHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainEventHooks(a, b func(Event)) func(Event) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ev Event) {
		a(ev)
		b(ev)
	}
}

func chainErrorHooks(a, b func(Event, error)) func(Event, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ev Event, err error) {
		a(ev, err)
		b(ev, err)
	}
}

func (h Hooks) start(ev Event) {
	if h.OnStart != nil {
		h.OnStart(ev)
	}
}

func (h Hooks) done(ev Event) {
	if h.OnDone != nil {
		h.OnDone(ev)
	}
}

func (h Hooks) fail(ev Event, err error) {
	if h.OnError != nil {
		h.OnError(ev, err)
	}
}

// LoggingHooks logs stored messages at debug level and failures at error level.
// Decode failures are logged at info level since they are caused by senders.
func LoggingHooks(logger logging.ServiceLogger) Hooks {
	return Hooks{
		OnDone: func(ev Event) {
			logger.Debug("Analytics message stored", logging.LogFields{
				"kind":        ev.KindLabel(),
				"origin":      ev.Origin,
				"tmstp":       ev.Timestamp,
				"duration_ms": ev.Duration.Milliseconds(),
			})
		},
		OnError: func(ev Event, err error) {
			fields := logging.LogFields{
				"kind":        ev.KindLabel(),
				"size":        ev.Size,
				"duration_ms": ev.Duration.Milliseconds(),
			}
			if ev.Decoded {
				fields["origin"] = ev.Origin
				fields["tmstp"] = ev.Timestamp
			}
			if IsDecodeError(err) {
				fields["error"] = err.Error()
				logger.Info("Rejected analytics message", fields)
				return
			}
			logger.Error("Failed to store analytics message", err, fields)
		},
	}
}
