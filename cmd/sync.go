package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aura/internal/formatter"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	"github.com/desertthunder/aura/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync fetches the user's listening data, runs the analysis, and caches
// the results. With --watch it renders interactive progress instead of
// log lines.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	force := cmd.Bool("force")
	watch := cmd.Bool("watch")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	config := r.loadConfig(cmd)
	userID, err := r.resolveUser(cmd, config)
	if err != nil {
		return err
	}

	store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := r.buildEngine(config, store, userID)
	if err != nil {
		return err
	}

	if watch {
		return r.syncWatch(ctx, engine, userID, force)
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	result, err := engine.Sync(ctx, userID, force, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}

	if result.FromCache {
		r.writePlainln("✓ Cache is fresh, no fetch needed")
	} else {
		r.writePlainln("✓ Sync complete")
	}

	for _, s := range result.Skipped {
		r.writePlain("⚠ Skipped %s: %s\n", s.Resource, s.Reason)
	}

	if result.Summary != nil {
		r.output.Write(formatter.SummaryToText(result.Summary))
	}

	return nil
}

// syncWatch runs the sync behind an interactive terminal view.
func (r *Runner) syncWatch(ctx context.Context, engine *tasks.ProfileEngine, userID string, force bool) error {
	// Redirect logs to file to avoid interfering with the view
	fileLogger, err := shared.NewFileLogger("./tmp/aura-sync.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewSyncModel(ctx, engine, userID, force)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running sync view: %w", err)
	}

	return nil
}

// Summary prints the cached profile summary without any API calls.
func (r *Runner) Summary(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	pretty := cmd.Bool("pretty")

	config := r.loadConfig(cmd)
	userID, err := r.resolveUser(cmd, config)
	if err != nil {
		return err
	}

	store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Summarize(userID)
	if err != nil {
		return fmt.Errorf("no cached profile for %s: %w", userID, err)
	}

	switch format {
	case "json":
		return r.writeJSON(summary, pretty)
	case "markdown", "md":
		_, err := r.output.Write(formatter.SummaryToMarkdown(summary))
		return err
	default:
		_, err := r.output.Write(formatter.SummaryToText(summary))
		return err
	}
}

// Clear removes cached listening data for a user, and optionally the
// stored credential.
func (r *Runner) Clear(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	userID, err := r.resolveUser(cmd, config)
	if err != nil {
		return err
	}

	store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(userID); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	r.writePlain("✓ Cached data cleared for %s\n", userID)

	if cmd.Bool("credentials") {
		if err := store.ClearCredential(userID); err != nil {
			return fmt.Errorf("failed to clear credential: %w", err)
		}
		r.writePlain("✓ Credential removed for %s\n", userID)
	}

	return nil
}
