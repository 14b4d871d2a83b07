package atrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
)

// DefaultPLCDirectoryURL is the public PLC directory.
const DefaultPLCDirectoryURL = "https://plc.directory"

// Identity is a resolved DID: the handle the account goes by and the PDS
// hosting its repository.
type Identity struct {
	DID    string
	Handle string
	PDSURL string
}

// Resolver resolves DIDs to identities through the PLC directory or, for
// did:web, the domain's well-known document.
type Resolver struct {
	// PLCDirectoryURL defaults to DefaultPLCDirectoryURL.
	PLCDirectoryURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type didDocument struct {
	ID          string   `json:"id"`
	AlsoKnownAs []string `json:"alsoKnownAs"`
	Service     []struct {
		ID              string `json:"id"`
		Type            string `json:"type"`
		ServiceEndpoint string `json:"serviceEndpoint"`
	} `json:"service"`
}

// ResolveDID fetches and reads the DID document for did. Unsupported DID
// methods and documents without a PDS service report IDENTITY_UNRESOLVED.
func (r *Resolver) ResolveDID(ctx context.Context, did string) (Identity, error) {
	did = strings.TrimSpace(did)

	var docURL string
	switch {
	case strings.HasPrefix(did, "did:plc:"):
		base := DefaultPLCDirectoryURL
		if r != nil && r.PLCDirectoryURL != "" {
			base = strings.TrimRight(r.PLCDirectoryURL, "/")
		}
		docURL = base + "/" + did
	case strings.HasPrefix(did, "did:web:"):
		domain := strings.TrimPrefix(did, "did:web:")
		if domain == "" || strings.Contains(domain, ":") {
			return Identity{}, apperrors.New(apperrors.CodeIdentityUnresolved,
				fmt.Sprintf("unsupported did:web form %q", did))
		}
		docURL = "https://" + domain + "/.well-known/did.json"
	default:
		return Identity{}, apperrors.New(apperrors.CodeIdentityUnresolved,
			fmt.Sprintf("unsupported did method in %q", did))
	}

	doc, err := r.fetchDocument(ctx, did, docURL)
	if err != nil {
		return Identity{}, err
	}

	identity := Identity{DID: did}
	for _, aka := range doc.AlsoKnownAs {
		if handle, ok := strings.CutPrefix(aka, "at://"); ok {
			identity.Handle = handle
			break
		}
	}
	for _, svc := range doc.Service {
		if svc.Type == "AtprotoPersonalDataServer" {
			identity.PDSURL = strings.TrimRight(svc.ServiceEndpoint, "/")
			break
		}
	}
	if identity.PDSURL == "" {
		return Identity{}, apperrors.New(apperrors.CodeIdentityUnresolved,
			fmt.Sprintf("no pds service in did document for %s", did))
	}
	return identity, nil
}

func (r *Resolver) fetchDocument(ctx context.Context, did, docURL string) (didDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return didDocument{}, apperrors.Wrap(apperrors.CodeIdentityUnresolved, "build resolve request", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := http.DefaultClient
	if r != nil && r.HTTPClient != nil {
		httpClient = r.HTTPClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return didDocument{}, apperrors.Wrap(apperrors.CodeIdentityUnresolved,
			fmt.Sprintf("resolve %s", did), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return didDocument{}, apperrors.New(apperrors.CodeIdentityUnresolved,
			fmt.Sprintf("resolve %s: %s", did, resp.Status))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return didDocument{}, apperrors.Wrap(apperrors.CodeIdentityUnresolved, "read did document", err)
	}
	var doc didDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return didDocument{}, apperrors.Wrap(apperrors.CodeIdentityUnresolved, "decode did document", err)
	}
	return doc, nil
}
