// Package atrepo talks to an AT repository over XRPC. It carries the HTTP
// client, the session restore flow, the identity resolver, and the dual-mode
// sync adapter the engine drives.
package atrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/platform/timeouts"
)

// Client is a minimal XRPC client bound to one PDS host and one access
// token. Tokens are short-lived; callers obtain a Client per request
// through session restore rather than holding one long-term.
type Client struct {
	httpClient *http.Client
	pdsURL     string
	accessJWT  string
}

// NewClient creates a client for the given PDS base URL. The access token
// may be empty for unauthenticated endpoints.
func NewClient(pdsURL, accessJWT string) (*Client, error) {
	pdsURL = strings.TrimRight(strings.TrimSpace(pdsURL), "/")
	if pdsURL == "" {
		return nil, fmt.Errorf("pds url is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeouts.XRPCRequest},
		pdsURL:     pdsURL,
		accessJWT:  accessJWT,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client. Tests use this to
// route calls at a httptest server with custom transports.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	if httpClient != nil {
		c.httpClient = httpClient
	}
}

// PDSURL returns the PDS base URL the client is bound to.
func (c *Client) PDSURL() string {
	return c.pdsURL
}

// RecordEnvelope is one entry of a listRecords response.
type RecordEnvelope struct {
	URI   string         `json:"uri"`
	CID   string         `json:"cid"`
	Value map[string]any `json:"value"`
}

// RecordKey extracts the record key from the envelope URI
// (at://<did>/<collection>/<rkey>).
func (e RecordEnvelope) RecordKey() string {
	idx := strings.LastIndex(e.URI, "/")
	if idx == -1 || idx == len(e.URI)-1 {
		return ""
	}
	return e.URI[idx+1:]
}

// RecordPage is a page of records plus the PDS continuation cursor.
type RecordPage struct {
	Records []RecordEnvelope
	Cursor  string
}

// RefreshedSession is the result of com.atproto.server.refreshSession.
type RefreshedSession struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJWT  string `json:"accessJwt"`
	RefreshJWT string `json:"refreshJwt"`
}

// CreateRecord writes a new record under the given key. A key collision on
// the remote side surfaces as RECORD_EXISTS.
func (c *Client) CreateRecord(ctx context.Context, repo, collection, rkey string, record any) error {
	body := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
		"validate":   false,
		"record":     record,
	}
	return c.procedure(ctx, "com.atproto.repo.createRecord", c.accessJWT, body, nil)
}

// PutRecord writes a record under the given key, replacing any existing one.
func (c *Client) PutRecord(ctx context.Context, repo, collection, rkey string, record any) error {
	body := map[string]any{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
		"validate":   false,
		"record":     record,
	}
	return c.procedure(ctx, "com.atproto.repo.putRecord", c.accessJWT, body, nil)
}

// GetRecord fetches one record value as a generic JSON object. A missing
// record surfaces as NOT_FOUND.
func (c *Client) GetRecord(ctx context.Context, repo, collection, rkey string) (map[string]any, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", collection)
	params.Set("rkey", rkey)

	var out struct {
		Value map[string]any `json:"value"`
	}
	if err := c.query(ctx, "com.atproto.repo.getRecord", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// ListRecords fetches one page of a collection, newest first.
func (c *Client) ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (RecordPage, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", collection)
	params.Set("reverse", "false")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var out struct {
		Records []RecordEnvelope `json:"records"`
		Cursor  string           `json:"cursor"`
	}
	if err := c.query(ctx, "com.atproto.repo.listRecords", params, &out); err != nil {
		return RecordPage{}, err
	}
	return RecordPage{Records: out.Records, Cursor: out.Cursor}, nil
}

// RepoRef is one repository hosting a collection, as reported by a relay.
type RepoRef struct {
	DID string `json:"did"`
}

// RepoPage is a page of repository references plus the relay cursor.
type RepoPage struct {
	Repos  []RepoRef
	Cursor string
}

// ListReposByCollection asks a relay which repositories publish records in
// the given collection. Only relays serve this endpoint.
func (c *Client) ListReposByCollection(ctx context.Context, collection string, limit int, cursor string) (RepoPage, error) {
	params := url.Values{}
	params.Set("collection", collection)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var out struct {
		Repos  []RepoRef `json:"repos"`
		Cursor string    `json:"cursor"`
	}
	if err := c.query(ctx, "com.atproto.sync.listReposByCollection", params, &out); err != nil {
		return RepoPage{}, err
	}
	return RepoPage{Repos: out.Repos, Cursor: out.Cursor}, nil
}

// RefreshSession exchanges a refresh token for fresh session tokens. The
// refresh token rides in the Authorization header in place of the access
// token.
func (c *Client) RefreshSession(ctx context.Context, refreshJWT string) (RefreshedSession, error) {
	var out RefreshedSession
	if err := c.procedure(ctx, "com.atproto.server.refreshSession", refreshJWT, nil, &out); err != nil {
		return RefreshedSession{}, err
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, nsid string, params url.Values, out any) error {
	endpoint := c.pdsURL + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteTransport, "build xrpc request", err)
	}
	c.setHeaders(req, c.accessJWT)
	return c.do(req, nsid, out)
}

func (c *Client) procedure(ctx context.Context, nsid, auth string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeRemoteTransport, "encode xrpc request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pdsURL+"/xrpc/"+nsid, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteTransport, "build xrpc request", err)
	}
	c.setHeaders(req, auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, nsid, out)
}

func (c *Client) setHeaders(req *http.Request, auth string) {
	req.Header.Set("Accept", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
}

func (c *Client) do(req *http.Request, nsid string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteUnavailable,
			fmt.Sprintf("%s: repository unreachable", nsid), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteTransport,
			fmt.Sprintf("%s: read response", nsid), err)
	}

	if resp.StatusCode != http.StatusOK {
		return wireError(nsid, resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteTransport,
			fmt.Sprintf("%s: decode response", nsid), err)
	}
	return nil
}

// wireError translates an XRPC error body into a coded domain error.
func wireError(nsid string, status int, payload []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}
	message = fmt.Sprintf("%s: %s", nsid, message)

	code := apperrors.CodeRemoteTransport
	switch {
	case status == http.StatusUnauthorized,
		body.Error == "ExpiredToken",
		body.Error == "InvalidToken":
		code = apperrors.CodeNeedsReauth
	case body.Error == "RecordAlreadyExists",
		status == http.StatusConflict,
		strings.Contains(strings.ToLower(message), "already exists"):
		code = apperrors.CodeRecordExists
	case body.Error == "RecordNotFound",
		status == http.StatusNotFound:
		code = apperrors.CodeNotFound
	case status >= http.StatusInternalServerError:
		code = apperrors.CodeRemoteUnavailable
	}

	return apperrors.WithMetadata(code, message, map[string]string{
		"status": strconv.Itoa(status),
		"error":  body.Error,
	})
}
