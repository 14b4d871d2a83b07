package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
)

// GetSession loads the saved session for an account identifier.
func (s *Store) GetSession(ctx context.Context, did string) (storage.SessionRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}
	did = strings.TrimSpace(did)
	if did == "" {
		return storage.SessionRecord{}, fmt.Errorf("did is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT did, handle, pds_url, access_jwt, refresh_jwt, updated_at
		 FROM sessions WHERE did = ?`, did)

	var session storage.SessionRecord
	var updatedAt string
	if err := row.Scan(
		&session.DID,
		&session.Handle,
		&session.PDSURL,
		&session.AccessJWT,
		&session.RefreshJWT,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	session.UpdatedAt = parseTime(updatedAt)
	return session, nil
}

// PutSession saves or replaces the session for an account identifier.
func (s *Store) PutSession(ctx context.Context, session storage.SessionRecord) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(session.DID) == "" {
		return fmt.Errorf("did is required")
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (did, handle, pds_url, access_jwt, refresh_jwt, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(did) DO UPDATE SET
			handle = excluded.handle,
			pds_url = excluded.pds_url,
			access_jwt = excluded.access_jwt,
			refresh_jwt = excluded.refresh_jwt,
			updated_at = excluded.updated_at`,
		session.DID,
		session.Handle,
		session.PDSURL,
		session.AccessJWT,
		session.RefreshJWT,
		formatTime(session.UpdatedAt),
	); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// DeleteSession removes the saved session for an account identifier.
func (s *Store) DeleteSession(ctx context.Context, did string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	did = strings.TrimSpace(did)
	if did == "" {
		return fmt.Errorf("did is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM sessions WHERE did = ?`, did); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
