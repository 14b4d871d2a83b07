package lexicon

import (
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
)

func decoded(t *testing.T, raw string) map[string]any {
	t.Helper()
	var value map[string]any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return value
}

func TestParseGameRecord(t *testing.T) {
	value := decoded(t, `{
		"$type": "blue.2048.game",
		"seededRecording": "v2:4x4:77:ULDR",
		"completed": true,
		"won": false,
		"currentScore": 264,
		"createdAt": "2025-06-01T12:00:00Z",
		"syncStatus": {
			"createdAt": "2025-06-01T12:00:00Z",
			"updatedAt": "2025-06-01T12:00:00Z",
			"syncedWithAtRepo": true,
			"hash": "aaaa000011112222"
		}
	}`)

	rec, err := ParseGameRecord(value)
	if err != nil {
		t.Fatalf("parse game record: %v", err)
	}
	if rec.SeededRecording != "v2:4x4:77:ULDR" {
		t.Fatalf("unexpected recording %q", rec.SeededRecording)
	}
	if !rec.Completed || rec.Won {
		t.Fatalf("unexpected flags: completed=%v won=%v", rec.Completed, rec.Won)
	}
	if rec.CurrentScore != 264 {
		t.Fatalf("unexpected score %d", rec.CurrentScore)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !rec.CreatedAt.Equal(want) {
		t.Fatalf("unexpected created at %v", rec.CreatedAt)
	}
	if !rec.SyncStatus.SyncedWithAtRepo || rec.SyncStatus.Hash != "aaaa000011112222" {
		t.Fatalf("unexpected sync status %+v", rec.SyncStatus)
	}
}

func TestParseGameRecordMissingType(t *testing.T) {
	// getRecord responses from some PDS implementations omit $type.
	value := decoded(t, `{
		"seededRecording": "v2:4x4:77:ULDR",
		"completed": true,
		"won": false,
		"currentScore": 264,
		"createdAt": "2025-06-01T12:00:00Z",
		"syncStatus": {
			"createdAt": "2025-06-01T12:00:00Z",
			"updatedAt": "2025-06-01T12:00:00Z",
			"syncedWithAtRepo": false,
			"hash": "aaaa000011112222"
		}
	}`)

	if _, err := ParseGameRecord(value); err != nil {
		t.Fatalf("expected typeless record to parse, got %v", err)
	}
}

func TestParseGameRecordRejects(t *testing.T) {
	cases := map[string]string{
		"wrong type":      `{"$type": "blue.2048.player.stats"}`,
		"missing fields":  `{"$type": "blue.2048.game"}`,
		"score not int":   `{"$type": "blue.2048.game", "seededRecording": "v2:4x4:1:U", "completed": true, "won": false, "currentScore": "high", "createdAt": "2025-06-01T12:00:00Z", "syncStatus": {"createdAt": "2025-06-01T12:00:00Z", "updatedAt": "2025-06-01T12:00:00Z", "syncedWithAtRepo": false, "hash": "h"}}`,
		"fractional int":  `{"$type": "blue.2048.game", "seededRecording": "v2:4x4:1:U", "completed": true, "won": false, "currentScore": 1.5, "createdAt": "2025-06-01T12:00:00Z", "syncStatus": {"createdAt": "2025-06-01T12:00:00Z", "updatedAt": "2025-06-01T12:00:00Z", "syncedWithAtRepo": false, "hash": "h"}}`,
		"bad timestamp":   `{"$type": "blue.2048.game", "seededRecording": "v2:4x4:1:U", "completed": true, "won": false, "currentScore": 1, "createdAt": "yesterday", "syncStatus": {"createdAt": "2025-06-01T12:00:00Z", "updatedAt": "2025-06-01T12:00:00Z", "syncedWithAtRepo": false, "hash": "h"}}`,
		"sync not object": `{"$type": "blue.2048.game", "seededRecording": "v2:4x4:1:U", "completed": true, "won": false, "currentScore": 1, "createdAt": "2025-06-01T12:00:00Z", "syncStatus": "ok"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGameRecord(decoded(t, raw))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !apperrors.HasCode(err, apperrors.CodeInvalidRecordShape) {
				t.Fatalf("expected INVALID_RECORD_SHAPE, got %v", err)
			}
		})
	}
}

func TestParsePlayerStats(t *testing.T) {
	value := decoded(t, `{
		"$type": "blue.2048.player.stats",
		"gamesPlayed": 3,
		"totalScore": 1050,
		"averageScore": 350,
		"highestScore": 650,
		"highestNumberBlock": 512,
		"timesTwentyFortyEightBeenFound": 0,
		"leastMovesToFindTwentyFortyEight": 0,
		"syncStatus": {
			"createdAt": "2025-06-01T12:00:00Z",
			"updatedAt": "2025-06-02T12:00:00Z",
			"syncedWithAtRepo": true,
			"hash": "bbbb000011112222"
		}
	}`)

	stats, err := ParsePlayerStats(value)
	if err != nil {
		t.Fatalf("parse player stats: %v", err)
	}
	if stats.GamesPlayed != 3 || stats.TotalScore != 1050 || stats.AverageScore != 350 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.HighestNumberBlock != 512 {
		t.Fatalf("unexpected highest block %d", stats.HighestNumberBlock)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := storage.GameRecord{
		Key:             "3jzfcijpj2z2a",
		SeededRecording: "v2:4x4:77:ULDR",
		Completed:       true,
		Won:             true,
		CurrentScore:    2048,
		CreatedAt:       now,
		SyncStatus: storage.SyncStatus{
			CreatedAt: now,
			UpdatedAt: now,
			Hash:      "aaaa000011112222",
		},
	}

	wire := FromStorageGame(rec)
	if wire.Type != CollectionGame {
		t.Fatalf("expected $type %q, got %q", CollectionGame, wire.Type)
	}

	back := wire.ToStorageGame(rec.Key)
	if back != rec {
		t.Fatalf("round trip mismatch: got %+v want %+v", back, rec)
	}

	stats := storage.PlayerStats{
		GamesPlayed:  1,
		TotalScore:   2048,
		AverageScore: 2048,
		HighestScore: 2048,
		SyncStatus:   storage.SyncStatus{CreatedAt: now, UpdatedAt: now, Hash: "cc"},
	}
	if got := FromStoragePlayerStats(stats).ToStoragePlayerStats(); got != stats {
		t.Fatalf("stats round trip mismatch: got %+v want %+v", got, stats)
	}
}
