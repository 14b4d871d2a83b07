// Package cursor encodes opaque page tokens for history listings.
//
// A token carries the requested page size, the running skip count for the
// local store, and the remote repository's own cursor when paging a remote
// listing. Tokens are threaded through unchanged across "load more" calls
// and must be discarded when the source tab changes; Decode enforces the
// source binding so a stale token cannot silently page the wrong listing.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Source identifies which listing a cursor pages through.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Cursor is the decoded page token.
type Cursor struct {
	Source   Source `json:"source"`
	PageSize int    `json:"page_size"`
	Skip     int    `json:"skip"`
	// Remote is the store-specific continuation token returned by the
	// remote repository; opaque to this package.
	Remote string `json:"remote,omitempty"`
}

// New returns a first-page cursor for the given source.
func New(source Source, pageSize int) Cursor {
	return Cursor{Source: source, PageSize: pageSize}
}

// Encode serializes the cursor into an opaque token.
func Encode(c Cursor) (string, error) {
	if err := validate(c); err != nil {
		return "", err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses an opaque token back into a cursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("cursor token is required")
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor token: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if err := validate(c); err != nil {
		return Cursor{}, err
	}
	return c, nil
}

// ValidateSource rejects a cursor minted for a different listing.
func ValidateSource(c Cursor, source Source) error {
	if c.Source != source {
		return fmt.Errorf("cursor belongs to %q listing, not %q", c.Source, source)
	}
	return nil
}

func validate(c Cursor) error {
	switch c.Source {
	case SourceLocal, SourceRemote:
	default:
		return fmt.Errorf("invalid cursor source %q", c.Source)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("cursor page size must be positive, got %d", c.PageSize)
	}
	if c.Skip < 0 {
		return fmt.Errorf("cursor skip must be non-negative, got %d", c.Skip)
	}
	return nil
}
