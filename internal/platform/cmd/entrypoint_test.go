package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type entrypointTestConfig struct {
	DBPath string `env:"BLUE2048_TEST_DB_PATH" envDefault:"blue2048.db"`
}

func TestParseConfigNilTarget(t *testing.T) {
	var cfg *entrypointTestConfig
	if err := ParseConfig(cfg); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestParseConfigFromArgs(t *testing.T) {
	t.Setenv("BLUE2048_TEST_DB_PATH", "/tmp/from-env.db")

	var cfg entrypointTestConfig
	fs := flag.NewFlagSet("game", flag.ContinueOnError)
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database path")
	if err := ParseArgs(fs, []string{"-db", "/tmp/from-flag.db"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if cfg.DBPath != "/tmp/from-flag.db" {
		t.Fatalf("expected flag to win, got %q", cfg.DBPath)
	}
}

func TestParseArgsNilFlagSet(t *testing.T) {
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestRunWithTelemetryRequiresService(t *testing.T) {
	err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestRunWithTelemetryRequiresRun(t *testing.T) {
	err := RunWithTelemetry(context.Background(), ServiceGame, nil)
	if err == nil {
		t.Fatal("expected error for nil run function")
	}
}

func TestRunWithTelemetryPropagatesRunError(t *testing.T) {
	t.Setenv("BLUE2048_OTEL_ENDPOINT", "")

	wantErr := errors.New("boom")
	err := RunWithTelemetry(context.Background(), ServiceGame, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected run error, got %v", err)
	}
}
