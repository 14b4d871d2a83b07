package sync

import (
	"time"

	"github.com/louisbranch/blue2048/internal/game"
	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
)

// MergeGameIntoStats folds one completed round into the lifetime stats. It
// is pure: no store access, no clock beyond the provided timestamp.
//
// The stats record is seeded at install time, so a missing record means the
// installation is broken; it is reported as INCONSISTENT_STATE rather than
// silently re-initialized, which would fork the lifetime counters.
//
// history is the board after each move, opening board first, so an entry's
// index is the number of moves taken to reach it. Milestone tiles are
// counted at most once per tile identity per game; the least-moves counter
// only considers the first milestone tile of each game.
func MergeGameIntoStats(existing storage.PlayerStats, found bool, final game.GameState, history []game.Board, now time.Time) (storage.PlayerStats, error) {
	if !found {
		return storage.PlayerStats{}, apperrors.New(apperrors.CodeInconsistentState,
			"player stats record is missing; it should have been created at install time")
	}

	stats := existing
	stats.GamesPlayed++
	stats.TotalScore += final.Score
	stats.AverageScore = stats.TotalScore / stats.GamesPlayed
	if final.Score > stats.HighestScore {
		stats.HighestScore = final.Score
	}
	if highest := int64(final.Board.HighestValue()); highest > stats.HighestNumberBlock {
		stats.HighestNumberBlock = highest
	}

	firstMilestone := true
	milestones := make(map[int]bool)
	for moves, board := range history {
		for _, tile := range board.Tiles() {
			if int64(tile.Value) > stats.HighestNumberBlock {
				stats.HighestNumberBlock = int64(tile.Value)
			}
			if tile.Value != game.MilestoneValue || milestones[tile.ID] {
				continue
			}
			milestones[tile.ID] = true
			stats.TimesTwentyFortyEightBeenFound++
			if firstMilestone {
				firstMilestone = false
				if stats.LeastMovesToFindTwentyFortyEight == 0 ||
					int64(moves) < stats.LeastMovesToFindTwentyFortyEight {
					stats.LeastMovesToFindTwentyFortyEight = int64(moves)
				}
			}
		}
	}

	stats.SyncStatus.UpdatedAt = now.UTC()
	if stats.SyncStatus.CreatedAt.IsZero() {
		stats.SyncStatus.CreatedAt = now.UTC()
	}
	stats.SyncStatus.SyncedWithAtRepo = false
	return stats, nil
}

// pickNewerStats returns the stats snapshot with the later update. Remote
// stats refresh uses it to adopt records written by another device.
func pickNewerStats(local, remote storage.PlayerStats) storage.PlayerStats {
	if remote.SyncStatus.UpdatedAt.After(local.SyncStatus.UpdatedAt) {
		return remote
	}
	return local
}
