package atrepo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
)

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("", "token"); err == nil {
		t.Fatal("expected error for empty pds url")
	}
}

func TestCreateRecord(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.createRecord" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer access-token" {
			t.Errorf("unexpected authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uri":"at://did:plc:abc/blue.2048.game/3jzfcijpj2z2a","cid":"bafy"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "access-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	record := map[string]any{"$type": "blue.2048.game"}
	if err := client.CreateRecord(context.Background(), "did:plc:abc", "blue.2048.game", "3jzfcijpj2z2a", record); err != nil {
		t.Fatalf("create record: %v", err)
	}
	if got["repo"] != "did:plc:abc" || got["collection"] != "blue.2048.game" || got["rkey"] != "3jzfcijpj2z2a" {
		t.Fatalf("unexpected request body %v", got)
	}
}

func TestCreateRecordConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"InvalidRequest","message":"record already exists"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "access-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.CreateRecord(context.Background(), "did:plc:abc", "blue.2048.game", "3jzfcijpj2z2a", nil)
	if !apperrors.HasCode(err, apperrors.CodeRecordExists) {
		t.Fatalf("expected RECORD_EXISTS, got %v", err)
	}
}

func TestExpiredTokenMapsToNeedsReauth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"ExpiredToken","message":"Token has expired"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "stale-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetRecord(context.Background(), "did:plc:abc", "blue.2048.player.stats", "self")
	if !apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
		t.Fatalf("expected NEEDS_REAUTH, got %v", err)
	}
}

func TestUnauthorizedMapsToNeedsReauth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.PutRecord(context.Background(), "did:plc:abc", "blue.2048.player.stats", "self", nil)
	if !apperrors.HasCode(err, apperrors.CodeNeedsReauth) {
		t.Fatalf("expected NEEDS_REAUTH, got %v", err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"RecordNotFound","message":"Could not locate record"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "access-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetRecord(context.Background(), "did:plc:abc", "blue.2048.player.stats", "self")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUnreachableRepoMapsToRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := NewClient(srv.URL, "access-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetRecord(context.Background(), "did:plc:abc", "blue.2048.game", "3jzfcijpj2z2a")
	if !apperrors.HasCode(err, apperrors.CodeRemoteUnavailable) {
		t.Fatalf("expected REMOTE_UNAVAILABLE, got %v", err)
	}
}

func TestListRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cursor"); got != "prev-cursor" {
			t.Errorf("unexpected cursor %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("unexpected limit %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"cursor": "next-cursor",
			"records": [
				{"uri": "at://did:plc:abc/blue.2048.game/3jzfcijpj2z2b", "cid": "b1", "value": {"currentScore": 10}},
				{"uri": "at://did:plc:abc/blue.2048.game/3jzfcijpj2z2a", "cid": "b2", "value": {"currentScore": 20}}
			]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "access-token")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	page, err := client.ListRecords(context.Background(), "did:plc:abc", "blue.2048.game", 2, "prev-cursor")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.Cursor != "next-cursor" {
		t.Fatalf("unexpected cursor %q", page.Cursor)
	}
	if key := page.Records[0].RecordKey(); key != "3jzfcijpj2z2b" {
		t.Fatalf("unexpected record key %q", key)
	}
}

func TestRefreshSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.server.refreshSession" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer refresh-token" {
			t.Errorf("expected refresh token in authorization, got %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"did":"did:plc:abc","handle":"player.example.com","accessJwt":"new-access","refreshJwt":"new-refresh"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.RefreshSession(context.Background(), "refresh-token")
	if err != nil {
		t.Fatalf("refresh session: %v", err)
	}
	if session.AccessJWT != "new-access" || session.RefreshJWT != "new-refresh" {
		t.Fatalf("unexpected session %+v", session)
	}
}
