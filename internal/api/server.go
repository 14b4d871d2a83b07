// Package api exposes the sync engine to local UI processes over an
// XRPC-shaped HTTP surface. The wire format mirrors what a PDS speaks so
// clients reuse one error vocabulary for local and remote failures.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/platform/timeouts"
	"github.com/louisbranch/blue2048/internal/storage/cursor"
	"github.com/louisbranch/blue2048/internal/sync"
)

// Engine is the sync surface the server fronts.
type Engine interface {
	Dispatch(ctx context.Context, req sync.Request) sync.Response
	ListHistory(ctx context.Context, req sync.HistoryRequest) (sync.HistoryPage, error)
}

// Server hosts the local sync API.
type Server struct {
	engine     Engine
	httpServer *http.Server
	addr       string
}

// NewServer creates a server listening on addr.
func NewServer(addr string, engine Engine) (*Server, error) {
	if addr == "" {
		return nil, errors.New("listen address is required")
	}
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{engine: engine, addr: addr}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return s, nil
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /xrpc/blue.2048.sync.dispatch", s.handleDispatch)
	mux.HandleFunc("GET /xrpc/blue.2048.sync.listHistory", s.handleListHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("sync api listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

type dispatchRequest struct {
	Kind      string `json:"kind"`
	Recording string `json:"recording,omitempty"`
	Key       string `json:"key,omitempty"`
	DID       string `json:"did,omitempty"`
}

type dispatchResponse struct {
	Status      string `json:"status"`
	Code        string `json:"code,omitempty"`
	Detail      string `json:"detail,omitempty"`
	NeedsReauth bool   `json:"needsReauth,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeXRPCError(w, http.StatusBadRequest, "InvalidRequest", "request body does not parse")
		return
	}

	resp := s.engine.Dispatch(r.Context(), sync.Request{
		Kind:      sync.RequestKind(req.Kind),
		Recording: req.Recording,
		Key:       req.Key,
		DID:       req.DID,
	})
	writeJSON(w, http.StatusOK, dispatchResponse{
		Status:      string(resp.Status),
		Code:        string(resp.Code),
		Detail:      resp.Detail,
		NeedsReauth: resp.NeedsReauth,
	})
}

type historyGame struct {
	Key             string `json:"key"`
	SeededRecording string `json:"seededRecording"`
	Won             bool   `json:"won"`
	CurrentScore    int64  `json:"currentScore"`
	CreatedAt       string `json:"createdAt"`
	Synced          bool   `json:"synced"`
}

type historyResponse struct {
	Games         []historyGame `json:"games"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pageSize := 0
	if raw := query.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeXRPCError(w, http.StatusBadRequest, "InvalidRequest", "pageSize must be a non-negative integer")
			return
		}
		pageSize = parsed
	}

	page, err := s.engine.ListHistory(r.Context(), sync.HistoryRequest{
		Source:    cursor.Source(query.Get("source")),
		DID:       query.Get("did"),
		PageSize:  pageSize,
		PageToken: query.Get("pageToken"),
	})
	if err != nil {
		code := apperrors.CodeOf(err)
		writeXRPCError(w, statusFor(code), code.XRPCName(), err.Error())
		return
	}

	resp := historyResponse{Games: make([]historyGame, 0, len(page.Games)), NextPageToken: page.NextPageToken}
	for _, rec := range page.Games {
		resp.Games = append(resp.Games, historyGame{
			Key:             rec.Key,
			SeededRecording: rec.SeededRecording,
			Won:             rec.Won,
			CurrentScore:    rec.CurrentScore,
			CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			Synced:          rec.SyncStatus.SyncedWithAtRepo,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeNeedsReauth, apperrors.CodeSessionMissing:
		return http.StatusUnauthorized
	case apperrors.CodeUnknown, apperrors.CodeLocalStore, apperrors.CodeInconsistentState:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeXRPCError(w http.ResponseWriter, status int, name, message string) {
	writeJSON(w, status, map[string]string{"error": name, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
