// Package storage defines the local record store contracts.
//
// The engine only requires a narrow keyed CRUD/list surface from the local
// store; implementations live in subpackages (storage/sqlite). All record
// structs are plain values so stores stay swappable in tests.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such record"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// SyncStatus tracks reconciliation state between the local copy of a record
// and its remote counterpart.
type SyncStatus struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	// SyncedWithAtRepo flips true only once the remote copy is confirmed to
	// exist. There is no reverse transition.
	SyncedWithAtRepo bool
	// Hash is the content fingerprint of the recording, used for dedup.
	Hash string
}

// GameRecord is one completed (or in-progress-but-saved) round.
type GameRecord struct {
	// Key is the timestamp-ordered record key generated at creation and
	// reused for the remote copy.
	Key             string
	SeededRecording string
	Completed       bool
	Won             bool
	CurrentScore    int64
	CreatedAt       time.Time
	SyncStatus      SyncStatus
}

// PlayerStats is the lifetime aggregate for one installation.
type PlayerStats struct {
	GamesPlayed        int64
	TotalScore         int64
	AverageScore       int64
	HighestScore       int64
	HighestNumberBlock int64
	// Lifetime milestone counters. LeastMovesToFindTwentyFortyEight is 0
	// until the milestone has been reached at least once.
	TimesTwentyFortyEightBeenFound   int64
	LeastMovesToFindTwentyFortyEight int64
	SyncStatus                       SyncStatus
}

// GamePage describes a page of game records, newest first.
type GamePage struct {
	Games         []GameRecord
	NextPageToken string
}

// GameStore owns persisted game records, keyed by record key and indexed by
// content hash.
type GameStore interface {
	// InsertGameIfAbsent inserts rec unless a record with the same content
	// hash already exists. The check and insert run in one transaction, so
	// concurrent completions of an identical recording cannot double-insert.
	// Returns the stored record and whether an insert happened.
	InsertGameIfAbsent(ctx context.Context, rec GameRecord) (GameRecord, bool, error)
	GetGame(ctx context.Context, key string) (GameRecord, error)
	GetGameByHash(ctx context.Context, hash string) (GameRecord, error)
	// MarkGameSynced records the confirmed existence of the remote copy.
	MarkGameSynced(ctx context.Context, key string, syncedAt time.Time) error
	// ListGames returns a page of records ordered by insertion, newest first.
	ListGames(ctx context.Context, pageSize int, pageToken string) (GamePage, error)
}

// StatsStore owns the singleton lifetime statistics record. The record is
// seeded with zero values when the store is initialized; a missing record
// afterwards is a data-integrity fault the caller must surface, not repair.
type StatsStore interface {
	GetPlayerStats(ctx context.Context) (PlayerStats, bool, error)
	PutPlayerStats(ctx context.Context, stats PlayerStats) error
	// ResetPlayerStats restores the zero-value record, used when a session
	// becomes fully unauthenticated.
	ResetPlayerStats(ctx context.Context) error
}

// SessionRecord holds the saved remote session for one account.
type SessionRecord struct {
	DID        string
	Handle     string
	PDSURL     string
	AccessJWT  string
	RefreshJWT string
	UpdatedAt  time.Time
}

// SessionStore persists authenticated sessions between runs.
type SessionStore interface {
	GetSession(ctx context.Context, did string) (SessionRecord, error)
	PutSession(ctx context.Context, session SessionRecord) error
	DeleteSession(ctx context.Context, did string) error
}

// TelemetryEvent is one operational event record.
type TelemetryEvent struct {
	Timestamp time.Time
	Severity  string
	Kind      string
	Message   string
}

// TelemetryStore appends operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}
