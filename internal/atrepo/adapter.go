package atrepo

import (
	"context"
	"errors"

	"github.com/louisbranch/blue2048/internal/atrepo/lexicon"
	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
)

// RepoSync bridges the engine and the account's AT repository. It runs in
// one of two modes: logged in, where writes go to the PDS, or local only,
// where remote operations degrade to no-ops so the engine takes a single
// code path whether or not an account is attached.
type RepoSync struct {
	client *Client
	did    string
}

// NewLoggedIn returns an adapter that syncs against did's repository.
func NewLoggedIn(client *Client, did string) *RepoSync {
	return &RepoSync{client: client, did: did}
}

// NewLocalOnly returns an adapter with no remote side.
func NewLocalOnly() *RepoSync {
	return &RepoSync{}
}

// CanRemoteSync reports whether the adapter has a repository to sync with.
func (r *RepoSync) CanRemoteSync() bool {
	return r != nil && r.client != nil && r.did != ""
}

// DID returns the account the adapter is bound to, or empty in local-only
// mode.
func (r *RepoSync) DID() string {
	if r == nil {
		return ""
	}
	return r.did
}

// CreateGame writes the game record to the repository under its key.
// Local-only mode is a no-op. A key collision surfaces as RECORD_EXISTS;
// callers treat that as already synced.
func (r *RepoSync) CreateGame(ctx context.Context, rec storage.GameRecord) error {
	if !r.CanRemoteSync() {
		return nil
	}
	return r.client.CreateRecord(ctx, r.did, lexicon.CollectionGame, rec.Key, lexicon.FromStorageGame(rec))
}

// GetPlayerStats fetches the repository's stats record. Local-only mode and
// a repository that has never written stats both report found=false.
func (r *RepoSync) GetPlayerStats(ctx context.Context) (storage.PlayerStats, bool, error) {
	if !r.CanRemoteSync() {
		return storage.PlayerStats{}, false, nil
	}

	value, err := r.client.GetRecord(ctx, r.did, lexicon.CollectionPlayerStats, lexicon.StatsRecordKey)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return storage.PlayerStats{}, false, nil
		}
		return storage.PlayerStats{}, false, err
	}

	parsed, err := lexicon.ParsePlayerStats(value)
	if err != nil {
		return storage.PlayerStats{}, false, err
	}
	return parsed.ToStoragePlayerStats(), true, nil
}

// PutPlayerStats replaces the repository's stats record. Local-only mode is
// a no-op.
func (r *RepoSync) PutPlayerStats(ctx context.Context, stats storage.PlayerStats) error {
	if !r.CanRemoteSync() {
		return nil
	}
	return r.client.PutRecord(ctx, r.did, lexicon.CollectionPlayerStats,
		lexicon.StatsRecordKey, lexicon.FromStoragePlayerStats(stats))
}

// ListGames fetches one page of the repository's game records, newest
// first. Entries that fail lexicon coercion are dropped from the page.
// Local-only mode reports SESSION_MISSING since there is nothing to list.
func (r *RepoSync) ListGames(ctx context.Context, limit int, cursor string) ([]storage.GameRecord, string, error) {
	if !r.CanRemoteSync() {
		return nil, "", apperrors.New(apperrors.CodeSessionMissing, "not logged in")
	}

	page, err := r.client.ListRecords(ctx, r.did, lexicon.CollectionGame, limit, cursor)
	if err != nil {
		return nil, "", err
	}

	records := make([]storage.GameRecord, 0, len(page.Records))
	for _, envelope := range page.Records {
		parsed, err := lexicon.ParseGameRecord(envelope.Value)
		if err != nil {
			var shapeErr *apperrors.Error
			if errors.As(err, &shapeErr) && shapeErr.Code == apperrors.CodeInvalidRecordShape {
				continue
			}
			return nil, "", err
		}
		records = append(records, parsed.ToStorageGame(envelope.RecordKey()))
	}
	return records, page.Cursor, nil
}
