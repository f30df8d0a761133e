package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := appCommand(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not authenticated, run 'aura auth' first")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// appCommand assembles the root command for the CLI.
func appCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "aura",
		Usage:    "Sync and analyze your Spotify listening profile",
		Version:  "0.1.0",
		Commands: r.register(),
	}
}
