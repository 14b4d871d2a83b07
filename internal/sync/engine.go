package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/blue2048/internal/game"
	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/platform/tid"
	"github.com/louisbranch/blue2048/internal/storage"
	"github.com/louisbranch/blue2048/internal/storage/cursor"
	"github.com/louisbranch/blue2048/internal/telemetry"
)

const defaultHistoryPageSize = 25

// RepoSync is the engine's view of the remote repository adapter. The
// local-only implementation degrades remote operations to no-ops so the
// engine runs one code path whether or not an account is attached.
type RepoSync interface {
	CanRemoteSync() bool
	CreateGame(ctx context.Context, rec storage.GameRecord) error
	GetPlayerStats(ctx context.Context) (storage.PlayerStats, bool, error)
	PutPlayerStats(ctx context.Context, stats storage.PlayerStats) error
	ListGames(ctx context.Context, limit int, cursor string) ([]storage.GameRecord, string, error)
}

// RepoSyncFactory builds the adapter for one request's account. An empty
// did must yield a local-only adapter. The factory runs per call so token
// refresh happens on the request's own context.
type RepoSyncFactory func(ctx context.Context, did string) (RepoSync, error)

// Engine executes sync requests against the local store and the account's
// AT repository. It holds no per-game state; concurrent dispatches are safe
// because everything shared lives in the stores.
type Engine struct {
	games       storage.GameStore
	stats       storage.StatsStore
	repoSync    RepoSyncFactory
	emitter     *telemetry.Emitter
	reconstruct func(recording string) (game.Reconstruction, error)
	newKey      func() string
	now         func() time.Time
	tracer      trace.Tracer
}

// EngineConfig wires an Engine. Games and Stats are required; the rest
// default to production implementations.
type EngineConfig struct {
	Games    storage.GameStore
	Stats    storage.StatsStore
	RepoSync RepoSyncFactory

	Telemetry *telemetry.Emitter

	// Reconstruct overrides the replay oracle.
	Reconstruct func(recording string) (game.Reconstruction, error)
	// NewKey overrides record key generation.
	NewKey func() string
	// Now overrides the clock.
	Now func() time.Time
}

// NewEngine creates a sync engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Games == nil {
		return nil, fmt.Errorf("game store is required")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats store is required")
	}

	e := &Engine{
		games:       cfg.Games,
		stats:       cfg.Stats,
		repoSync:    cfg.RepoSync,
		emitter:     cfg.Telemetry,
		reconstruct: cfg.Reconstruct,
		newKey:      cfg.NewKey,
		now:         cfg.Now,
		tracer:      otel.Tracer("blue2048/sync"),
	}
	if e.repoSync == nil {
		e.repoSync = func(context.Context, string) (RepoSync, error) { return noRemote{}, nil }
	}
	if e.reconstruct == nil {
		e.reconstruct = reconstructString
	}
	if e.newKey == nil {
		e.newKey = tid.Next
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func reconstructString(recording string) (game.Reconstruction, error) {
	rec, err := game.ParseRecording(recording)
	if err != nil {
		return game.Reconstruction{}, apperrors.Wrap(apperrors.CodeInvalidRecording,
			"recording does not parse", err)
	}
	recon, err := game.Reconstruct(rec)
	if err != nil {
		return game.Reconstruction{}, apperrors.Wrap(apperrors.CodeInvalidRecording,
			"recording does not replay", err)
	}
	return recon, nil
}

// noRemote is the zero-dependency local-only adapter used when no factory
// is configured.
type noRemote struct{}

func (noRemote) CanRemoteSync() bool { return false }
func (noRemote) CreateGame(context.Context, storage.GameRecord) error {
	return nil
}
func (noRemote) GetPlayerStats(context.Context) (storage.PlayerStats, bool, error) {
	return storage.PlayerStats{}, false, nil
}
func (noRemote) PutPlayerStats(context.Context, storage.PlayerStats) error {
	return nil
}
func (noRemote) ListGames(context.Context, int, string) ([]storage.GameRecord, string, error) {
	return nil, "", apperrors.New(apperrors.CodeSessionMissing, "not logged in")
}

// Dispatch routes a request to its operation. It is the UI-facing boundary;
// programmatic callers use CompleteGame and Resync directly.
func (e *Engine) Dispatch(ctx context.Context, req Request) Response {
	ctx, span := e.tracer.Start(ctx, "sync.dispatch."+string(req.Kind))
	defer span.End()

	switch req.Kind {
	case RequestGameCompleted:
		return e.CompleteGame(ctx, req.Recording, req.DID)
	case RequestResyncGame:
		return e.Resync(ctx, req.Key, req.DID)
	default:
		return errorResponse(apperrors.New(apperrors.CodeUnknown,
			fmt.Sprintf("unknown request kind %q", req.Kind)))
	}
}

// CompleteGame records a finished round. The recording is replayed for
// validity, deduplicated by content hash, merged into the lifetime stats,
// and persisted locally; when an account is attached the stats and the game
// record are replicated to its repository. Remote failures degrade to a
// repo_error response with the local state already consistent.
func (e *Engine) CompleteGame(ctx context.Context, recording, did string) Response {
	recon, err := e.reconstruct(recording)
	if err != nil {
		return errorResponse(err)
	}

	hash := game.HashRecording(recording)
	if _, err := e.games.GetGameByHash(ctx, hash); err == nil {
		return alreadySyncedResponse()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return errorResponse(apperrors.Wrap(apperrors.CodeLocalStore, "dedup lookup", err))
	}

	adapter, needsReauth, repoErr := e.buildAdapter(ctx, did)

	now := e.now().UTC()
	rec := storage.GameRecord{
		Key:             e.newKey(),
		SeededRecording: recording,
		Completed:       recon.Final.Over,
		Won:             recon.Final.Won,
		CurrentScore:    recon.Final.Score,
		CreatedAt:       now,
		SyncStatus: storage.SyncStatus{
			CreatedAt: now,
			UpdatedAt: now,
			Hash:      hash,
		},
	}

	merged, resp := e.refreshAndMergeStats(ctx, adapter, &needsReauth, recon, now)
	if resp != nil {
		return *resp
	}
	if err := e.pushStats(ctx, adapter, &needsReauth, merged); err != nil {
		repoErr = err
	}

	_, inserted, err := e.games.InsertGameIfAbsent(ctx, rec)
	if err != nil {
		return errorResponse(apperrors.Wrap(apperrors.CodeLocalStore, "save game record", err))
	}
	if !inserted {
		// Another dispatch landed the same recording first.
		return alreadySyncedResponse()
	}

	if adapter.CanRemoteSync() && !needsReauth {
		if err := e.createRemoteGame(ctx, adapter, rec); err != nil {
			if apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
				needsReauth = true
			} else {
				repoErr = err
			}
		}
	}

	if needsReauth {
		return repoErrorResponse(apperrors.New(apperrors.CodeNeedsReauth,
			"remote repository rejected the session"))
	}
	if repoErr != nil {
		e.emitWarn(ctx, "sync", repoErr.Error())
		return repoErrorResponse(repoErr)
	}
	return successResponse()
}

// Resync replays an already stored game into the account's repository. The
// record must exist locally; a remote copy already present under the same
// key counts as success.
func (e *Engine) Resync(ctx context.Context, key, did string) Response {
	rec, err := e.games.GetGame(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResponse(apperrors.New(apperrors.CodeNotFound,
				fmt.Sprintf("no local game %q to resync", key)))
		}
		return errorResponse(apperrors.Wrap(apperrors.CodeLocalStore, "load game record", err))
	}

	if did == "" {
		return errorResponse(apperrors.New(apperrors.CodeSessionMissing,
			"resync requires an account"))
	}
	adapter, err := e.repoSync(ctx, did)
	if err != nil {
		return repoErrorResponse(err)
	}
	if !adapter.CanRemoteSync() {
		return repoErrorResponse(apperrors.New(apperrors.CodeSessionMissing, "not logged in"))
	}

	recon, err := e.reconstruct(rec.SeededRecording)
	if err != nil {
		return errorResponse(err)
	}

	// Stored outcome fields may predate oracle fixes; refresh them from
	// the replay before the copy leaves the device.
	now := e.now().UTC()
	rec.Completed = recon.Final.Over
	rec.Won = recon.Final.Won
	rec.CurrentScore = recon.Final.Score
	rec.SyncStatus.UpdatedAt = now

	if err := e.createRemoteGame(ctx, adapter, rec); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
			return repoErrorResponse(err)
		}
		e.emitWarn(ctx, "resync", err.Error())
		return repoErrorResponse(err)
	}

	needsReauth := false
	merged, resp := e.refreshAndMergeStats(ctx, adapter, &needsReauth, recon, now)
	if resp != nil {
		return *resp
	}
	if err := e.pushStats(ctx, adapter, &needsReauth, merged); err != nil {
		e.emitWarn(ctx, "resync", err.Error())
		return repoErrorResponse(err)
	}
	if needsReauth {
		return repoErrorResponse(apperrors.New(apperrors.CodeNeedsReauth,
			"remote repository rejected the session"))
	}
	return successResponse()
}

// buildAdapter resolves the request's adapter. Session trouble degrades to
// local-only so the completion still lands on the device; other factory
// failures degrade the same way but are reported as a repo error.
func (e *Engine) buildAdapter(ctx context.Context, did string) (adapter RepoSync, needsReauth bool, repoErr error) {
	if did == "" {
		return noRemote{}, false, nil
	}
	adapter, err := e.repoSync(ctx, did)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeNeedsReauth, apperrors.CodeSessionMissing:
			return noRemote{}, true, nil
		default:
			e.emitWarn(ctx, "sync", err.Error())
			return noRemote{}, false, err
		}
	}
	return adapter, false, nil
}

// refreshAndMergeStats reads local stats, best-effort refreshes them from
// the repository, merges the round in, and saves the result locally. A
// non-nil response aborts the caller.
func (e *Engine) refreshAndMergeStats(ctx context.Context, adapter RepoSync, needsReauth *bool, recon game.Reconstruction, now time.Time) (storage.PlayerStats, *Response) {
	local, found, err := e.stats.GetPlayerStats(ctx)
	if err != nil {
		resp := errorResponse(apperrors.Wrap(apperrors.CodeLocalStore, "load player stats", err))
		return storage.PlayerStats{}, &resp
	}

	base := local
	if adapter.CanRemoteSync() && !*needsReauth {
		remote, remoteFound, err := adapter.GetPlayerStats(ctx)
		switch {
		case err == nil:
			if remoteFound {
				base = pickNewerStats(local, remote)
			}
		case apperrors.HasCode(err, apperrors.CodeNeedsReauth):
			*needsReauth = true
		default:
			// Best effort: stale local stats beat a failed completion.
			e.emitWarn(ctx, "stats", err.Error())
		}
	}

	merged, err := MergeGameIntoStats(base, found, recon.Final, recon.History, now)
	if err != nil {
		e.emitError(ctx, "stats", err.Error())
		resp := errorResponse(err)
		return storage.PlayerStats{}, &resp
	}
	if err := e.stats.PutPlayerStats(ctx, merged); err != nil {
		resp := errorResponse(apperrors.Wrap(apperrors.CodeLocalStore, "save player stats", err))
		return storage.PlayerStats{}, &resp
	}
	return merged, nil
}

// pushStats replicates merged stats to the repository. Transport failures
// are swallowed; auth failures flip needsReauth.
func (e *Engine) pushStats(ctx context.Context, adapter RepoSync, needsReauth *bool, merged storage.PlayerStats) error {
	if !adapter.CanRemoteSync() || *needsReauth {
		return nil
	}
	if err := adapter.PutPlayerStats(ctx, merged); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
			*needsReauth = true
			return nil
		}
		e.emitWarn(ctx, "stats", err.Error())
	}
	return nil
}

// createRemoteGame writes the record to the repository and marks the local
// copy synced. A remote copy already under the key counts as synced.
func (e *Engine) createRemoteGame(ctx context.Context, adapter RepoSync, rec storage.GameRecord) error {
	err := adapter.CreateGame(ctx, rec)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeRecordExists) {
		return err
	}
	if err := e.games.MarkGameSynced(ctx, rec.Key, e.now().UTC()); err != nil {
		e.emitWarn(ctx, "sync", fmt.Sprintf("mark %s synced: %v", rec.Key, err))
	}
	return nil
}

// ListHistory returns one page of completed games from the requested
// source. Page tokens are bound to their source; switching tabs starts a
// fresh listing.
func (e *Engine) ListHistory(ctx context.Context, req HistoryRequest) (HistoryPage, error) {
	ctx, span := e.tracer.Start(ctx, "sync.list_history")
	defer span.End()

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}

	switch req.Source {
	case cursor.SourceLocal, "":
		if _, err := decodePageToken(req.PageToken, cursor.SourceLocal); err != nil {
			return HistoryPage{}, err
		}
		page, err := e.games.ListGames(ctx, pageSize, req.PageToken)
		if err != nil {
			return HistoryPage{}, apperrors.Wrap(apperrors.CodeLocalStore, "list games", err)
		}
		return HistoryPage{Games: page.Games, NextPageToken: page.NextPageToken}, nil
	case cursor.SourceRemote:
		return e.listRemoteHistory(ctx, req, pageSize)
	default:
		return HistoryPage{}, apperrors.New(apperrors.CodeInvalidCursor,
			fmt.Sprintf("invalid history source %q", req.Source))
	}
}

// decodePageToken rejects tokens that do not decode or belong to another
// listing, so the caller's mistake never surfaces as a store fault.
func decodePageToken(token string, source cursor.Source) (cursor.Cursor, error) {
	if token == "" {
		return cursor.Cursor{}, nil
	}
	page, err := cursor.Decode(token)
	if err != nil {
		return cursor.Cursor{}, apperrors.Wrap(apperrors.CodeInvalidCursor, "decode page token", err)
	}
	if err := cursor.ValidateSource(page, source); err != nil {
		return cursor.Cursor{}, apperrors.Wrap(apperrors.CodeInvalidCursor, "validate page token", err)
	}
	return page, nil
}

func (e *Engine) listRemoteHistory(ctx context.Context, req HistoryRequest, pageSize int) (HistoryPage, error) {
	adapter, err := e.repoSync(ctx, req.DID)
	if err != nil {
		return HistoryPage{}, err
	}

	page := cursor.New(cursor.SourceRemote, pageSize)
	if req.PageToken != "" {
		page, err = decodePageToken(req.PageToken, cursor.SourceRemote)
		if err != nil {
			return HistoryPage{}, err
		}
	}

	records, next, err := adapter.ListGames(ctx, pageSize, page.Remote)
	if err != nil {
		return HistoryPage{}, err
	}

	games := make([]storage.GameRecord, 0, len(records))
	for _, rec := range records {
		if _, err := e.reconstruct(rec.SeededRecording); err != nil {
			e.emitWarn(ctx, "history", fmt.Sprintf("dropping invalid remote game %s", rec.Key))
			continue
		}
		games = append(games, rec)
	}

	result := HistoryPage{Games: games}
	if next != "" {
		page.Remote = next
		token, err := cursor.Encode(page)
		if err != nil {
			return HistoryPage{}, err
		}
		result.NextPageToken = token
	}
	return result, nil
}

func (e *Engine) emitWarn(ctx context.Context, kind, message string) {
	_ = e.emitter.Warn(ctx, kind, message)
}

func (e *Engine) emitError(ctx context.Context, kind, message string) {
	_ = e.emitter.Error(ctx, kind, message)
}
