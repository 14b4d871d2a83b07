// Package telemetry records operational events into the local store so
// sync failures are inspectable after the fact.
package telemetry

import (
	"context"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Emitter records operational telemetry events.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// WithClock returns a copy of the emitter using the provided clock.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	if e == nil {
		return nil
	}
	return &Emitter{store: e.store, clock: clock}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
// Telemetry never fails the operation that produced it; errors from the
// store are returned for logging only.
func (e *Emitter) Emit(ctx context.Context, severity Severity, kind, message string) error {
	if e == nil || e.store == nil {
		return nil
	}

	now := time.Now
	if e.clock != nil {
		now = e.clock
	}
	return e.store.AppendTelemetryEvent(ctx, storage.TelemetryEvent{
		Timestamp: now().UTC(),
		Severity:  string(severity),
		Kind:      kind,
		Message:   message,
	})
}

// Info records an INFO event.
func (e *Emitter) Info(ctx context.Context, kind, message string) error {
	return e.Emit(ctx, SeverityInfo, kind, message)
}

// Warn records a WARN event.
func (e *Emitter) Warn(ctx context.Context, kind, message string) error {
	return e.Emit(ctx, SeverityWarn, kind, message)
}

// Error records an ERROR event.
func (e *Emitter) Error(ctx context.Context, kind, message string) error {
	return e.Emit(ctx, SeverityError, kind, message)
}
