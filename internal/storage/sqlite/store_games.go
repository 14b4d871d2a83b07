package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
	"github.com/louisbranch/blue2048/internal/storage/cursor"
)

const gameColumns = `key, seeded_recording, completed, won, current_score, created_at,
	sync_created_at, sync_updated_at, synced_with_at_repo, hash`

// InsertGameIfAbsent inserts rec unless a record with the same content hash
// already exists. The hash check and the insert share one transaction, which
// closes the check-then-act race a plain index lookup would leave open.
func (s *Store) InsertGameIfAbsent(ctx context.Context, rec storage.GameRecord) (storage.GameRecord, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.GameRecord{}, false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(rec.Key) == "" {
		return storage.GameRecord{}, false, fmt.Errorf("record key is required")
	}
	if strings.TrimSpace(rec.SyncStatus.Hash) == "" {
		return storage.GameRecord{}, false, fmt.Errorf("content hash is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.GameRecord{}, false, fmt.Errorf("begin insert game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE hash = ? LIMIT 1`,
		rec.SyncStatus.Hash,
	)
	existing, err := scanGame(row)
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return storage.GameRecord{}, false, fmt.Errorf("check game hash: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (`+gameColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key,
		rec.SeededRecording,
		boolToInt(rec.Completed),
		boolToInt(rec.Won),
		rec.CurrentScore,
		formatTime(rec.CreatedAt),
		formatTime(rec.SyncStatus.CreatedAt),
		formatTime(rec.SyncStatus.UpdatedAt),
		boolToInt(rec.SyncStatus.SyncedWithAtRepo),
		rec.SyncStatus.Hash,
	); err != nil {
		return storage.GameRecord{}, false, fmt.Errorf("insert game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.GameRecord{}, false, fmt.Errorf("commit insert game: %w", err)
	}
	return rec, true, nil
}

// GetGame loads a game record by its record key.
func (s *Store) GetGame(ctx context.Context, key string) (storage.GameRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.GameRecord{}, fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.GameRecord{}, fmt.Errorf("record key is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE key = ?`, key)
	rec, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.GameRecord{}, storage.ErrNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get game: %w", err)
	}
	return rec, nil
}

// GetGameByHash loads a game record through the content hash index.
func (s *Store) GetGameByHash(ctx context.Context, hash string) (storage.GameRecord, error) {
	if s == nil || s.sqlDB == nil {
		return storage.GameRecord{}, fmt.Errorf("storage is not configured")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return storage.GameRecord{}, fmt.Errorf("content hash is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE hash = ? LIMIT 1`, hash)
	rec, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.GameRecord{}, storage.ErrNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("get game by hash: %w", err)
	}
	return rec, nil
}

// MarkGameSynced records the confirmed existence of the remote copy.
func (s *Store) MarkGameSynced(ctx context.Context, key string, syncedAt time.Time) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("record key is required")
	}
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE games SET synced_with_at_repo = 1, sync_updated_at = ? WHERE key = ?`,
		formatTime(syncedAt), key)
	if err != nil {
		return fmt.Errorf("mark game synced: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark game synced: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListGames returns a page of game records ordered by insertion, newest
// first. An empty pageToken starts a fresh listing.
func (s *Store) ListGames(ctx context.Context, pageSize int, pageToken string) (storage.GamePage, error) {
	if s == nil || s.sqlDB == nil {
		return storage.GamePage{}, fmt.Errorf("storage is not configured")
	}

	page := cursor.New(cursor.SourceLocal, pageSize)
	if pageToken != "" {
		decoded, err := cursor.Decode(pageToken)
		if err != nil {
			return storage.GamePage{}, fmt.Errorf("decode page token: %w", err)
		}
		if err := cursor.ValidateSource(decoded, cursor.SourceLocal); err != nil {
			return storage.GamePage{}, err
		}
		page = decoded
	}
	if page.PageSize <= 0 {
		return storage.GamePage{}, fmt.Errorf("page size must be positive, got %d", page.PageSize)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY rowid DESC LIMIT ? OFFSET ?`,
		page.PageSize, page.Skip)
	if err != nil {
		return storage.GamePage{}, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []storage.GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return storage.GamePage{}, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, rec)
	}
	if err := rows.Err(); err != nil {
		return storage.GamePage{}, fmt.Errorf("list games: %w", err)
	}

	result := storage.GamePage{Games: games}
	if len(games) == page.PageSize {
		next := page
		next.Skip += page.PageSize
		token, err := cursor.Encode(next)
		if err != nil {
			return storage.GamePage{}, fmt.Errorf("encode page token: %w", err)
		}
		result.NextPageToken = token
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (storage.GameRecord, error) {
	var rec storage.GameRecord
	var completed, won, synced int64
	var createdAt, syncCreatedAt, syncUpdatedAt string
	if err := row.Scan(
		&rec.Key,
		&rec.SeededRecording,
		&completed,
		&won,
		&rec.CurrentScore,
		&createdAt,
		&syncCreatedAt,
		&syncUpdatedAt,
		&synced,
		&rec.SyncStatus.Hash,
	); err != nil {
		return storage.GameRecord{}, err
	}
	rec.Completed = completed != 0
	rec.Won = won != 0
	rec.CreatedAt = parseTime(createdAt)
	rec.SyncStatus.CreatedAt = parseTime(syncCreatedAt)
	rec.SyncStatus.UpdatedAt = parseTime(syncUpdatedAt)
	rec.SyncStatus.SyncedWithAtRepo = synced != 0
	return rec, nil
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
