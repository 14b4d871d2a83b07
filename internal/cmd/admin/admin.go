// Package admin wires the administrative CLI.
package admin

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/louisbranch/blue2048/internal/leaderboard"
	entrypoint "github.com/louisbranch/blue2048/internal/platform/cmd"
)

// NewRootCommand creates the root command for the admin CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           entrypoint.ServiceAdmin,
		Short:         "Administrative tools for the blue.2048 network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newLeaderboardCommand())
	return cmd
}

type leaderboardOptions struct {
	RelayURL        string `env:"BLUE2048_RELAY_URL" envDefault:"https://relay1.us-east.bsky.network"`
	PLCDirectoryURL string `env:"BLUE2048_PLC_DIRECTORY_URL"`
	Top             int    `env:"BLUE2048_LEADERBOARD_TOP" envDefault:"10"`
	Concurrency     int
	Verbose         bool
}

func newLeaderboardCommand() *cobra.Command {
	opts := &leaderboardOptions{}
	envErr := entrypoint.ParseConfig(opts)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the global leaderboard ranked by validated top score",
		Long: `Scan every repository publishing blue.2048 games, replay each
recording locally, and rank players by their best validated score.
Scores claimed by records that fail replay validation are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			return runLeaderboard(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RelayURL, "relay", opts.RelayURL, "relay serving listReposByCollection")
	cmd.Flags().StringVar(&opts.PLCDirectoryURL, "plc-directory", opts.PLCDirectoryURL, "PLC directory URL for DID resolution")
	cmd.Flags().IntVar(&opts.Top, "top", opts.Top, "number of entries to print")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "simultaneous PDS scans")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log skipped repositories and records")

	return cmd
}

func runLeaderboard(cmd *cobra.Command, opts *leaderboardOptions) error {
	cfg := leaderboard.Config{
		RelayURL:        opts.RelayURL,
		PLCDirectoryURL: opts.PLCDirectoryURL,
		Concurrency:     opts.Concurrency,
	}
	if opts.Verbose {
		cfg.Logf = log.Printf
	}
	builder, err := leaderboard.New(cfg)
	if err != nil {
		return err
	}
	entries, err := builder.Top(cmd.Context(), opts.Top)
	if err != nil {
		return fmt.Errorf("build leaderboard: %w", err)
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []leaderboard.Entry) {
	for i, entry := range entries {
		player := entry.Handle
		if player == "" {
			player = entry.DID
		}
		fmt.Fprintf(w, "%d. %d @%s\n", i+1, entry.TopScore, player)
	}
}
