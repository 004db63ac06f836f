// Package dispatch turns one inbound buffer into exactly one storage write.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/storage"
)

const tracerName = "github.com/drblury/analyticsbase/internal/dispatch"

// Dispatcher decodes envelopes and forwards them to an AnalyticsStore. It keeps
// no per-message state and is safe for concurrent use.
type Dispatcher struct {
	store  storage.AnalyticsStore
	hooks  Hooks
	tracer trace.Tracer
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithHooks merges hooks into the dispatcher's hooks.
func WithHooks(h Hooks) Option {
	return func(d *Dispatcher) {
		d.hooks = d.hooks.Merge(h)
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

// New returns a Dispatcher writing to store.
func New(store storage.AnalyticsStore, opts ...Option) *Dispatcher {
	if store == nil {
		panic("dispatch: store cannot be nil")
	}
	d := &Dispatcher{
		store:  store,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle decodes buf and performs one store operation for its kind. A decode
// failure performs no write. The returned error is a *ProcessingError.
func (d *Dispatcher) Handle(ctx context.Context, buf []byte) error {
	ctx, span := d.tracer.Start(ctx, "analytics.dispatch",
		trace.WithAttributes(attribute.Int("analytics.size", len(buf))))
	defer span.End()

	ev := Event{Context: ctx, Size: len(buf), StartedAt: time.Now()}
	d.hooks.start(ev)

	err := d.handle(ctx, buf, &ev)
	ev.Duration = time.Since(ev.StartedAt)

	if ev.Decoded {
		span.SetAttributes(
			attribute.String("analytics.kind", ev.Kind.String()),
			attribute.String("analytics.origin", ev.Origin),
			attribute.Int64("analytics.tmstp", ev.Timestamp),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.hooks.fail(ev, err)
		return err
	}
	d.hooks.done(ev)
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, buf []byte, ev *Event) error {
	env, err := analytics.Decode(buf)
	if err != nil {
		return decodeFailure(err)
	}

	meta := analytics.BuildMetadata(env)
	ev.Decoded = true
	ev.Kind = meta.Kind
	ev.Origin = meta.Origin
	ev.Timestamp = meta.TimestampMillis()

	switch meta.Kind {
	case analytics.KindPageChange:
		change, err := analytics.BuildPageChange(env)
		if err != nil {
			return kindFailure(StageDecode, meta.Kind, err)
		}
		return storeResult(meta.Kind, d.store.StorePageChange(ctx, meta, change))
	case analytics.KindPlaybackChange:
		playback, err := analytics.BuildPlaybackChange(env)
		if err != nil {
			return kindFailure(StageDecode, meta.Kind, err)
		}
		return storeResult(meta.Kind, d.store.StorePlaybackChange(ctx, meta, playback))
	case analytics.KindSongChange:
		song, err := analytics.BuildSongChange(env)
		if err != nil {
			return kindFailure(StageDecode, meta.Kind, err)
		}
		return storeResult(meta.Kind, d.store.StoreSongChange(ctx, meta, song))
	default:
		return kindFailure(StageDecode, meta.Kind,
			&analytics.DecodeError{Field: "kind", Err: fmt.Errorf("%w: %d", analytics.ErrUnknownKind, meta.Kind.Code())})
	}
}

func storeResult(kind analytics.MessageKind, err error) error {
	if err == nil {
		return nil
	}
	return kindFailure(StageStore, kind, err)
}
