package atrepo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
)

// expiryLeeway treats tokens expiring this soon as already stale, so a
// request never departs with a token that dies in flight.
const expiryLeeway = 30 * time.Second

// SessionManager restores saved sessions for a DID, refreshing stale access
// tokens against the PDS. The PDS verifies token signatures; local expiry
// checks are an unverified read of the exp claim.
type SessionManager struct {
	Sessions storage.SessionStore

	// Stats, when set, is reset on logout. Local statistics belong to the
	// logged-in account and must not leak into the next session.
	Stats storage.StatsStore

	// Now defaults to time.Now.
	Now func() time.Time
	// HTTPClient, when set, replaces the transport on refresh calls.
	HTTPClient *http.Client
}

// Restore loads the saved session for did and returns a client carrying a
// usable access token. A stale access token is refreshed and the rotated
// tokens are saved back. A missing session reports SESSION_MISSING; a
// session the PDS no longer accepts reports NEEDS_REAUTH.
func (m *SessionManager) Restore(ctx context.Context, did string) (*Client, storage.SessionRecord, error) {
	if m == nil || m.Sessions == nil {
		return nil, storage.SessionRecord{}, fmt.Errorf("session store is not configured")
	}

	session, err := m.Sessions.GetSession(ctx, did)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.SessionRecord{}, apperrors.New(apperrors.CodeSessionMissing,
				fmt.Sprintf("no saved session for %s", did))
		}
		return nil, storage.SessionRecord{}, apperrors.Wrap(apperrors.CodeLocalStore, "load session", err)
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	if !tokenExpired(session.AccessJWT, now()) {
		client, err := m.newClient(session.PDSURL, session.AccessJWT)
		if err != nil {
			return nil, storage.SessionRecord{}, err
		}
		return client, session, nil
	}

	if tokenExpired(session.RefreshJWT, now()) {
		return nil, storage.SessionRecord{}, apperrors.New(apperrors.CodeNeedsReauth,
			"session expired, log in again")
	}

	refresher, err := m.newClient(session.PDSURL, "")
	if err != nil {
		return nil, storage.SessionRecord{}, err
	}
	refreshed, err := refresher.RefreshSession(ctx, session.RefreshJWT)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
			return nil, storage.SessionRecord{}, err
		}
		return nil, storage.SessionRecord{}, apperrors.Wrap(apperrors.CodeRemoteTransport,
			"refresh session", err)
	}

	session.AccessJWT = refreshed.AccessJWT
	session.RefreshJWT = refreshed.RefreshJWT
	if refreshed.Handle != "" {
		session.Handle = refreshed.Handle
	}
	session.UpdatedAt = now().UTC()
	if err := m.Sessions.PutSession(ctx, session); err != nil {
		return nil, storage.SessionRecord{}, apperrors.Wrap(apperrors.CodeLocalStore,
			"save refreshed session", err)
	}

	client, err := m.newClient(session.PDSURL, session.AccessJWT)
	if err != nil {
		return nil, storage.SessionRecord{}, err
	}
	return client, session, nil
}

// Logout deletes the saved session for did and resets local player stats
// to their defaults. Absent sessions are fine.
func (m *SessionManager) Logout(ctx context.Context, did string) error {
	if m == nil || m.Sessions == nil {
		return fmt.Errorf("session store is not configured")
	}
	if err := m.Sessions.DeleteSession(ctx, did); err != nil {
		return apperrors.Wrap(apperrors.CodeLocalStore, "delete session", err)
	}
	if m.Stats != nil {
		if err := m.Stats.ResetPlayerStats(ctx); err != nil {
			return apperrors.Wrap(apperrors.CodeLocalStore, "reset player stats", err)
		}
	}
	return nil
}

func (m *SessionManager) newClient(pdsURL, accessJWT string) (*Client, error) {
	client, err := NewClient(pdsURL, accessJWT)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRemoteTransport, "configure client", err)
	}
	if m.HTTPClient != nil {
		client.SetHTTPClient(m.HTTPClient)
	}
	return client, nil
}

// tokenExpired reports whether the JWT's exp claim is at or past now. A
// token that does not parse, or carries no exp, counts as expired.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !exp.Time.After(now.Add(expiryLeeway))
}
