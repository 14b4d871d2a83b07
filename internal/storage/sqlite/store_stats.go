package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/blue2048/internal/storage"
)

const statsColumns = `games_played, total_score, average_score, highest_score,
	highest_number_block, times_twenty_forty_eight_been_found,
	least_moves_to_find_twenty_forty_eight,
	sync_created_at, sync_updated_at, synced_with_at_repo, hash`

// GetPlayerStats loads the singleton statistics record. The found flag is
// false only when the row is missing entirely, which the migration seeds and
// callers treat as a data-integrity fault.
func (s *Store) GetPlayerStats(ctx context.Context) (storage.PlayerStats, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.PlayerStats{}, false, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE id = 1`)

	var stats storage.PlayerStats
	var syncCreatedAt, syncUpdatedAt string
	var synced int64
	if err := row.Scan(
		&stats.GamesPlayed,
		&stats.TotalScore,
		&stats.AverageScore,
		&stats.HighestScore,
		&stats.HighestNumberBlock,
		&stats.TimesTwentyFortyEightBeenFound,
		&stats.LeastMovesToFindTwentyFortyEight,
		&syncCreatedAt,
		&syncUpdatedAt,
		&synced,
		&stats.SyncStatus.Hash,
	); err != nil {
		if err == sql.ErrNoRows {
			return storage.PlayerStats{}, false, nil
		}
		return storage.PlayerStats{}, false, fmt.Errorf("get player stats: %w", err)
	}
	stats.SyncStatus.CreatedAt = parseTime(syncCreatedAt)
	stats.SyncStatus.UpdatedAt = parseTime(syncUpdatedAt)
	stats.SyncStatus.SyncedWithAtRepo = synced != 0
	return stats, true, nil
}

// PutPlayerStats replaces the singleton statistics record in place.
func (s *Store) PutPlayerStats(ctx context.Context, stats storage.PlayerStats) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE player_stats SET
			games_played = ?,
			total_score = ?,
			average_score = ?,
			highest_score = ?,
			highest_number_block = ?,
			times_twenty_forty_eight_been_found = ?,
			least_moves_to_find_twenty_forty_eight = ?,
			sync_created_at = ?,
			sync_updated_at = ?,
			synced_with_at_repo = ?,
			hash = ?
		WHERE id = 1`,
		stats.GamesPlayed,
		stats.TotalScore,
		stats.AverageScore,
		stats.HighestScore,
		stats.HighestNumberBlock,
		stats.TimesTwentyFortyEightBeenFound,
		stats.LeastMovesToFindTwentyFortyEight,
		formatTime(stats.SyncStatus.CreatedAt),
		formatTime(stats.SyncStatus.UpdatedAt),
		boolToInt(stats.SyncStatus.SyncedWithAtRepo),
		stats.SyncStatus.Hash,
	)
	if err != nil {
		return fmt.Errorf("put player stats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put player stats: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetPlayerStats restores the zero-value statistics record, used when a
// session becomes fully unauthenticated.
func (s *Store) ResetPlayerStats(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	now := formatTime(time.Now())
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE player_stats SET
			games_played = 0,
			total_score = 0,
			average_score = 0,
			highest_score = 0,
			highest_number_block = 0,
			times_twenty_forty_eight_been_found = 0,
			least_moves_to_find_twenty_forty_eight = 0,
			sync_created_at = ?,
			sync_updated_at = ?,
			synced_with_at_repo = 0,
			hash = ''
		WHERE id = 1`, now, now); err != nil {
		return fmt.Errorf("reset player stats: %w", err)
	}
	return nil
}
