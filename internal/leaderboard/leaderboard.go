// Package leaderboard scans every public repository publishing blue.2048
// games and ranks players by their best independently validated score.
// Scores are never taken from the records themselves; each recording is
// replayed locally, so a tampered record ranks by what its moves actually
// produce.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/blue2048/internal/atrepo"
	"github.com/louisbranch/blue2048/internal/atrepo/lexicon"
	"github.com/louisbranch/blue2048/internal/game"
)

const (
	// recordPageLimit matches the PDS maximum for listRecords.
	recordPageLimit = 100
	// repoPageLimit bounds one relay enumeration page.
	repoPageLimit = 1000
	// defaultConcurrency bounds the per-PDS fan-out.
	defaultConcurrency = 4
)

// Entry is one leaderboard row.
type Entry struct {
	DID      string
	Handle   string
	TopScore int64
	// TopScoreURI points at the record that produced the score.
	TopScoreURI string
}

type collectionLister interface {
	ListReposByCollection(ctx context.Context, collection string, limit int, cursor string) (atrepo.RepoPage, error)
}

type recordLister interface {
	ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (atrepo.RecordPage, error)
}

type didResolver interface {
	ResolveDID(ctx context.Context, did string) (atrepo.Identity, error)
}

// Config wires a Builder.
type Config struct {
	// RelayURL is the relay serving listReposByCollection.
	RelayURL string
	// PLCDirectoryURL overrides the default PLC directory.
	PLCDirectoryURL string
	// Concurrency bounds simultaneous PDS scans.
	Concurrency int
	// Logf receives progress and skip notices; defaults to discard.
	Logf func(format string, args ...any)
}

// Builder assembles a leaderboard from public repositories.
type Builder struct {
	relay       collectionLister
	resolver    didResolver
	newPDS      func(pdsURL string) (recordLister, error)
	score       func(recording string) (int64, error)
	concurrency int
	logf        func(format string, args ...any)
}

// New creates a leaderboard builder talking to real relay, directory, and
// PDS hosts.
func New(cfg Config) (*Builder, error) {
	relay, err := atrepo.NewClient(cfg.RelayURL, "")
	if err != nil {
		return nil, fmt.Errorf("configure relay client: %w", err)
	}

	b := &Builder{
		relay:    relay,
		resolver: &atrepo.Resolver{PLCDirectoryURL: cfg.PLCDirectoryURL},
		newPDS: func(pdsURL string) (recordLister, error) {
			return atrepo.NewClient(pdsURL, "")
		},
		score:       validatedScore,
		concurrency: cfg.Concurrency,
		logf:        cfg.Logf,
	}
	if b.concurrency <= 0 {
		b.concurrency = defaultConcurrency
	}
	if b.logf == nil {
		b.logf = func(string, ...any) {}
	}
	return b, nil
}

// validatedScore replays a recording and returns its recomputed score.
// Invalid and zero-score games are rejected.
func validatedScore(recording string) (int64, error) {
	result, err := game.ValidateString(recording)
	if err != nil {
		return 0, err
	}
	if result.Score <= 0 {
		return 0, fmt.Errorf("game scores zero")
	}
	return result.Score, nil
}

type player struct {
	did    string
	handle string
}

// Top returns the best n players across every repository publishing games,
// sorted by score descending. Repositories that cannot be resolved or
// scanned are skipped, not fatal: one broken PDS must not hide everyone
// else.
func (b *Builder) Top(ctx context.Context, n int) ([]Entry, error) {
	byPDS, err := b.groupPlayersByPDS(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      gosync.Mutex
		entries []Entry
	)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.concurrency)
	for pdsURL, players := range byPDS {
		group.Go(func() error {
			client, err := b.newPDS(pdsURL)
			if err != nil {
				b.logf("skipping pds %s: %v", pdsURL, err)
				return nil
			}
			b.logf("scanning %d repos on %s", len(players), pdsURL)
			for _, p := range players {
				entry, ok := b.topGame(ctx, client, p)
				if !ok {
					continue
				}
				mu.Lock()
				entries = append(entries, entry)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TopScore != entries[j].TopScore {
			return entries[i].TopScore > entries[j].TopScore
		}
		return entries[i].DID < entries[j].DID
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// groupPlayersByPDS enumerates publishing repos via the relay and resolves
// each DID to its host, so scans hit each PDS with its own players batched.
func (b *Builder) groupPlayersByPDS(ctx context.Context) (map[string][]player, error) {
	byPDS := make(map[string][]player)
	cursor := ""
	for {
		page, err := b.relay.ListReposByCollection(ctx, lexicon.CollectionGame, repoPageLimit, cursor)
		if err != nil {
			return nil, fmt.Errorf("enumerate repos: %w", err)
		}
		for _, repo := range page.Repos {
			identity, err := b.resolver.ResolveDID(ctx, repo.DID)
			if err != nil {
				b.logf("skipping %s: %v", repo.DID, err)
				continue
			}
			byPDS[identity.PDSURL] = append(byPDS[identity.PDSURL], player{
				did:    repo.DID,
				handle: identity.Handle,
			})
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	return byPDS, nil
}

// topGame pages through one repository's games and keeps the best validated
// score.
func (b *Builder) topGame(ctx context.Context, client recordLister, p player) (Entry, bool) {
	entry := Entry{DID: p.did, Handle: p.handle}
	cursor := ""
	for {
		page, err := client.ListRecords(ctx, p.did, lexicon.CollectionGame, recordPageLimit, cursor)
		if err != nil {
			b.logf("skipping %s: %v", p.did, err)
			return Entry{}, false
		}
		for _, envelope := range page.Records {
			rec, err := lexicon.ParseGameRecord(envelope.Value)
			if err != nil {
				b.logf("skipping malformed record %s: %v", envelope.URI, err)
				continue
			}
			score, err := b.score(rec.SeededRecording)
			if err != nil {
				b.logf("skipping invalid game %s: %v", envelope.URI, err)
				continue
			}
			if score > entry.TopScore {
				entry.TopScore = score
				entry.TopScoreURI = envelope.URI
			}
		}
		// Some PDS implementations return short pages mid-listing; only an
		// empty cursor means the repository is exhausted.
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	if entry.TopScore == 0 {
		return Entry{}, false
	}
	return entry, true
}
