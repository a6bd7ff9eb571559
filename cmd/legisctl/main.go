// Command legisctl is the operator CLI for the legislation drafting API:
// it parses and assembles upstream documents, lists the catalog, diffs
// HTML snapshots and issues bearer tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"legisdraft/api/internal/config"
	"legisdraft/api/internal/fetch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "legisctl",
		Short:         "Legislation drafting toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(tocCmd())
	root.AddCommand(assembleCmd())
	root.AddCommand(listCmd())
	root.AddCommand(diffCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(browseCmd())
	return root
}

// upstream loads config and a fetcher for commands that talk to the
// upstream site.
func upstream(ctx context.Context) (config.Config, *fetch.Fetcher, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	fetcher, closeCache, err := fetch.NewFromConfig(ctx, cfg)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("creating fetcher: %w", err)
	}
	return cfg, fetcher, closeCache, nil
}
