// Package game parses game command flags and starts the sync service.
package game

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/louisbranch/blue2048/internal/api"
	"github.com/louisbranch/blue2048/internal/atrepo"
	entrypoint "github.com/louisbranch/blue2048/internal/platform/cmd"
	"github.com/louisbranch/blue2048/internal/storage/sqlite"
	syncengine "github.com/louisbranch/blue2048/internal/sync"
	"github.com/louisbranch/blue2048/internal/telemetry"
)

// Config holds game command configuration.
type Config struct {
	Addr   string `env:"BLUE2048_GAME_ADDR" envDefault:"127.0.0.1:8048"`
	DBPath string `env:"BLUE2048_DB_PATH" envDefault:"data/blue2048.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The sync service listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game sync service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		store, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		engine, err := syncengine.NewEngine(syncengine.EngineConfig{
			Games:     store,
			Stats:     store,
			RepoSync:  repoSyncFactory(store),
			Telemetry: telemetry.NewEmitter(store),
		})
		if err != nil {
			return err
		}
		server, err := api.NewServer(cfg.Addr, engine)
		if err != nil {
			return err
		}
		return server.ListenAndServe(ctx)
	})
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return sqlite.Open(path)
}

// repoSyncFactory restores the account's session on every request so token
// refresh happens on the request's own context.
func repoSyncFactory(store *sqlite.Store) syncengine.RepoSyncFactory {
	sessions := &atrepo.SessionManager{Sessions: store, Stats: store}
	return func(ctx context.Context, did string) (syncengine.RepoSync, error) {
		if did == "" {
			return atrepo.NewLocalOnly(), nil
		}
		client, _, err := sessions.Restore(ctx, did)
		if err != nil {
			return nil, err
		}
		return atrepo.NewLoggedIn(client, did), nil
	}
}
