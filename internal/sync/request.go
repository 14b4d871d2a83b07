// Package sync orchestrates game completion: validation, dedup, local
// persistence, lifetime statistics, and best-effort replication to the
// account's AT repository.
package sync

import (
	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
	"github.com/louisbranch/blue2048/internal/storage/cursor"
)

// RequestKind names the operation a request carries.
type RequestKind string

const (
	RequestGameCompleted RequestKind = "game_completed"
	RequestResyncGame    RequestKind = "resync_game"
)

// Request is the engine's UI-facing message. Recording is set for
// game_completed, Key for resync_game. DID is the optional account; empty
// means local-only play.
type Request struct {
	Kind      RequestKind
	Recording string
	Key       string
	DID       string
}

// Status is the outcome class of a sync request.
type Status string

const (
	// StatusSuccess: the game landed everywhere it was asked to.
	StatusSuccess Status = "success"
	// StatusAlreadySynced: the game was already known; nothing written.
	StatusAlreadySynced Status = "already_synced"
	// StatusError: the request failed before or during local persistence.
	StatusError Status = "error"
	// StatusRepoError: local state is consistent but the remote side
	// failed; the record stays flagged unsynced for a later resync.
	StatusRepoError Status = "repo_error"
)

// Response reports the outcome of a dispatched request.
type Response struct {
	Status Status
	// Code carries the dominant error code for error statuses.
	Code apperrors.Code
	// Detail is a human-readable failure description.
	Detail string
	// NeedsReauth is set when the remote side rejected the session; the
	// UI should prompt for a fresh login.
	NeedsReauth bool
}

// OK reports whether the request's intent was satisfied.
func (r Response) OK() bool {
	return r.Status == StatusSuccess || r.Status == StatusAlreadySynced
}

func successResponse() Response {
	return Response{Status: StatusSuccess}
}

func alreadySyncedResponse() Response {
	return Response{Status: StatusAlreadySynced}
}

func errorResponse(err error) Response {
	return Response{
		Status: StatusError,
		Code:   apperrors.CodeOf(err),
		Detail: err.Error(),
	}
}

func repoErrorResponse(err error) Response {
	code := apperrors.CodeOf(err)
	return Response{
		Status:      StatusRepoError,
		Code:        code,
		Detail:      err.Error(),
		NeedsReauth: code == apperrors.CodeNeedsReauth || code == apperrors.CodeSessionMissing,
	}
}

// HistoryRequest asks for one page of completed games.
type HistoryRequest struct {
	// Source selects the local store or the account's repository.
	Source cursor.Source
	// DID is required for remote pages.
	DID string
	// PageSize bounds the page; a non-positive value uses the default.
	PageSize int
	// PageToken continues a prior listing; empty starts over.
	PageToken string
}

// HistoryPage is one page of completed games, newest first.
type HistoryPage struct {
	Games         []storage.GameRecord
	NextPageToken string
}
