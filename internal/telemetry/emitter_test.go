package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
)

type fakeTelemetryStore struct {
	events []storage.TelemetryEvent
}

func (f *fakeTelemetryStore) AppendTelemetryEvent(_ context.Context, evt storage.TelemetryEvent) error {
	f.events = append(f.events, evt)
	return nil
}

func TestEmit(t *testing.T) {
	store := &fakeTelemetryStore{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store).WithClock(func() time.Time { return now })

	if err := emitter.Warn(context.Background(), "sync", "remote repository unavailable"); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	evt := store.events[0]
	if evt.Severity != string(SeverityWarn) {
		t.Fatalf("unexpected severity %q", evt.Severity)
	}
	if evt.Kind != "sync" {
		t.Fatalf("unexpected kind %q", evt.Kind)
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp %v", evt.Timestamp)
	}
}

func TestEmitNilEmitter(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Info(context.Background(), "sync", "noop"); err != nil {
		t.Fatalf("nil emitter must be a no-op, got %v", err)
	}
}

func TestEmitNilStore(t *testing.T) {
	emitter := NewEmitter(nil)
	if err := emitter.Error(context.Background(), "stats", "noop"); err != nil {
		t.Fatalf("nil store must be a no-op, got %v", err)
	}
}
