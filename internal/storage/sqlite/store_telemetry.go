package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
)

// AppendTelemetryEvent records one operational event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO telemetry_events (timestamp, severity, kind, message)
		 VALUES (?, ?, ?, ?)`,
		formatTime(evt.Timestamp),
		evt.Severity,
		evt.Kind,
		evt.Message,
	); err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}
