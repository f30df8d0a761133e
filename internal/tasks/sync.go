// package tasks implements the profile sync pipeline: batch fetch,
// analysis aggregation, and cache persistence.
//
// The core abstraction is [ProfileEngine], which orchestrates sync runs and
// answers summary and clear requests from the cache. Long-running syncs
// emit progress updates via channels for non-blocking status reporting to
// the CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/services"
	"github.com/desertthunder/aura/internal/shared"
)

// SyncState tracks a sync run through its lifecycle.
type SyncState int

const (
	StateIdle SyncState = iota
	StateChecking
	StateCacheHit
	StateFetching
	StateAggregating
	StatePersisted
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateCacheHit:
		return "cache_hit"
	case StateFetching:
		return "fetching"
	case StateAggregating:
		return "aggregating"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return ""
	}
}

// ProfileStore defines the cache operations the engine depends on.
// Implemented by repositories.Store.
type ProfileStore interface {
	SaveUserData(userID string, bundle *models.Bundle) error
	SaveAnalysis(userID string, analysis *models.Analysis) error
	SaveTrackSnapshot(userID string, snapshot *models.TrackSnapshot) error
	Summarize(userID string) (*models.DataSummary, error)
	IsFresh(userID string, maxAge time.Duration) (bool, error)
	Clear(userID string) error
}

// SyncResult contains the outcome of one sync run.
type SyncResult struct {
	RunID     string            // Unique id for this run
	UserID    string            // Cache key the run operated on
	State     SyncState         // Terminal state (StatePersisted or StateFailed)
	FromCache bool              // True when the freshness check short-circuited
	Skipped   []SkippedResource // Sub-resources omitted from the stored bundle
	Summary   *models.DataSummary
	Started   time.Time
	Finished  time.Time
}

// syncCall is the single-flight slot for an in-progress sync.
type syncCall struct {
	done   chan struct{}
	result *SyncResult
	err    error
}

// ProfileEngine orchestrates profile syncs against one music service and
// one cache store.
type ProfileEngine struct {
	service   services.MusicService
	store     ProfileStore
	logger    *log.Logger
	opts      FetchOpts
	freshness time.Duration

	mu       sync.Mutex
	inflight map[string]*syncCall
}

// NewProfileEngine creates an engine with the provided collaborators.
// A zero freshness duration defaults to one hour.
func NewProfileEngine(service services.MusicService, store ProfileStore, logger *log.Logger, opts FetchOpts, freshness time.Duration) *ProfileEngine {
	if freshness <= 0 {
		freshness = time.Hour
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &ProfileEngine{
		service:   service,
		store:     store,
		logger:    logger,
		opts:      opts,
		freshness: freshness,
		inflight:  make(map[string]*syncCall),
	}
}

// Sync refreshes the user's cached profile.
//
// When force is false and the cache is fresh, the call short-circuits to
// the existing cache entry with zero upstream API calls. Concurrent syncs
// for the same user are single-flight: later callers join the in-progress
// run and receive its result rather than racing a second batch fetch
// against the first.
func (e *ProfileEngine) Sync(ctx context.Context, userID string, force bool, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	e.mu.Lock()
	if call, ok := e.inflight[userID]; ok {
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &syncCall{done: make(chan struct{})}
	e.inflight[userID] = call
	e.mu.Unlock()

	call.result, call.err = e.sync(ctx, userID, force, progress)
	close(call.done)

	e.mu.Lock()
	delete(e.inflight, userID)
	e.mu.Unlock()

	return call.result, call.err
}

func (e *ProfileEngine) sync(ctx context.Context, userID string, force bool, progress chan<- ProgressUpdate) (*SyncResult, error) {
	result := &SyncResult{
		RunID:   shared.GenerateID(),
		UserID:  userID,
		State:   StateChecking,
		Started: time.Now(),
	}
	logger := e.logger.With("run_id", result.RunID, "user_id", userID)

	sendProgress(progress, checkCacheUpdate())

	if !force {
		fresh, err := e.store.IsFresh(userID, e.freshness)
		if err != nil {
			result.State = StateFailed
			return result, err
		}
		if fresh {
			summary, err := e.store.Summarize(userID)
			if err != nil {
				result.State = StateFailed
				return result, err
			}

			sendProgress(progress, cacheHitUpdate())
			logger.Debug("cache fresh, skipping fetch")

			result.State = StatePersisted
			result.FromCache = true
			result.Summary = summary
			result.Finished = time.Now()
			return result, nil
		}
	}

	result.State = StateFetching
	bundle, skipped, err := FetchBundle(ctx, e.service, e.opts, progress)
	result.Skipped = skipped
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	for _, s := range skipped {
		logger.Warn("resource skipped", "resource", s.Resource, "reason", s.Reason)
	}

	result.State = StateAggregating
	sendProgress(progress, aggregateUpdate())
	analysis := AggregateBundle(bundle)

	sendProgress(progress, persistUpdate())
	if err := e.store.SaveUserData(userID, bundle); err != nil {
		result.State = StateFailed
		return result, err
	}
	snapshot := &models.TrackSnapshot{
		TrackIDs: bundle.TrackIDs(),
		Features: bundle.AudioFeatures,
	}
	if err := e.store.SaveTrackSnapshot(userID, snapshot); err != nil {
		result.State = StateFailed
		return result, err
	}
	if err := e.store.SaveAnalysis(userID, &analysis); err != nil {
		result.State = StateFailed
		return result, err
	}

	summary, err := e.store.Summarize(userID)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	sendProgress(progress, doneUpdate(len(skipped)))
	logger.Info("sync persisted", "skipped", len(skipped), "tracks", len(snapshot.TrackIDs))

	result.State = StatePersisted
	result.Summary = summary
	result.Finished = time.Now()
	return result, nil
}

// Summary answers the cached summary view with no upstream calls.
func (e *ProfileEngine) Summary(userID string) (*models.DataSummary, error) {
	return e.store.Summarize(userID)
}

// Clear removes the user's cached data and analysis records.
func (e *ProfileEngine) Clear(userID string) error {
	return e.store.Clear(userID)
}
