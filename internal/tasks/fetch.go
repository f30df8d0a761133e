package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/services"
	"golang.org/x/time/rate"
)

// FetchOpts contains tuning knobs for a batch fetch.
type FetchOpts struct {
	TopItemLimit     int     // Items requested per top-tracks/artists window (default 50)
	RecentLimit      int     // Items requested from recently-played (default 50)
	FeatureBatchSize int     // Track IDs per audio-features call (default and ceiling 100)
	FeatureWorkers   int     // Concurrent audio-feature batch calls (default 4, max 10)
	RateLimit        float64 // Audio-feature requests per second (default 5)
}

func (o *FetchOpts) applyDefaults() {
	if o.TopItemLimit <= 0 || o.TopItemLimit > 50 {
		o.TopItemLimit = 50
	}
	if o.RecentLimit <= 0 || o.RecentLimit > 50 {
		o.RecentLimit = 50
	}
	if o.FeatureBatchSize <= 0 || o.FeatureBatchSize > services.MaxFeatureBatchSize {
		o.FeatureBatchSize = services.MaxFeatureBatchSize
	}
	if o.FeatureWorkers <= 0 {
		o.FeatureWorkers = 4
	}
	if o.FeatureWorkers > 10 {
		o.FeatureWorkers = 10
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5.0
	}
}

// SkippedResource records a sub-resource that failed during a fetch and
// was omitted from the bundle rather than aborting the sync.
type SkippedResource struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
}

// FetchBundle pulls the user's full listening history from the service.
//
// Independent resources run concurrently and are joined before return; a
// failure in one resource never cancels its siblings. Every failure other
// than the profile fetch is downgraded to a skipped entry with the field
// left empty. Profile failure is fatal because profile identity keys the
// cache.
func FetchBundle(ctx context.Context, svc services.MusicService, opts FetchOpts, progress chan<- ProgressUpdate) (*models.Bundle, []SkippedResource, error) {
	opts.applyDefaults()

	bundle := &models.Bundle{
		TopTracks:  make(map[models.TimeRange][]models.Track),
		TopArtists: make(map[models.TimeRange][]models.Artist),
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		skipped    []SkippedResource
		profileErr error
	)

	skip := func(resource string, err error) {
		mu.Lock()
		defer mu.Unlock()
		skipped = append(skipped, SkippedResource{Resource: resource, Reason: err.Error()})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendProgress(progress, fetchResourceUpdate(FetchProfile, "Fetching profile..."))
		profile, err := svc.Profile(ctx)
		if err != nil {
			profileErr = err
			return
		}
		bundle.Profile = profile
	}()

	for _, window := range models.TimeRanges() {
		wg.Add(2)

		go func(window models.TimeRange) {
			defer wg.Done()
			sendProgress(progress, fetchResourceUpdate(FetchTopTracks, fmt.Sprintf("Fetching top tracks (%s)...", window)))
			tracks, err := svc.TopTracks(ctx, window, opts.TopItemLimit)
			if err != nil {
				skip(fmt.Sprintf("topTracks.%s", window), err)
				return
			}
			mu.Lock()
			bundle.TopTracks[window] = tracks
			mu.Unlock()
		}(window)

		go func(window models.TimeRange) {
			defer wg.Done()
			sendProgress(progress, fetchResourceUpdate(FetchTopArtists, fmt.Sprintf("Fetching top artists (%s)...", window)))
			artists, err := svc.TopArtists(ctx, window, opts.TopItemLimit)
			if err != nil {
				skip(fmt.Sprintf("topArtists.%s", window), err)
				return
			}
			mu.Lock()
			bundle.TopArtists[window] = artists
			mu.Unlock()
		}(window)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendProgress(progress, fetchResourceUpdate(FetchRecent, "Fetching recently played..."))
		tracks, err := svc.RecentlyPlayed(ctx, opts.RecentLimit)
		if err != nil {
			skip("recentlyPlayed", err)
			return
		}
		bundle.RecentlyPlayed = tracks
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendProgress(progress, fetchResourceUpdate(FetchSaved, "Fetching saved tracks..."))
		tracks, err := svc.SavedTracks(ctx)
		if err != nil {
			skip("savedTracks", err)
			return
		}
		bundle.SavedTracks = tracks
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sendProgress(progress, fetchResourceUpdate(FetchPlaylists, "Fetching playlists..."))
		playlists, err := svc.Playlists(ctx)
		if err != nil {
			skip("playlists", err)
			return
		}
		bundle.Playlists = playlists
	}()

	wg.Wait()

	if profileErr != nil {
		return nil, skipped, fmt.Errorf("failed to fetch profile: %w", profileErr)
	}

	// Audio features are staged after track collection so the ID set can
	// be deduplicated across every bucket before batching.
	features, featureSkips := fetchFeatures(ctx, svc, bundle.TrackIDs(), opts, progress)
	bundle.AudioFeatures = features
	skipped = append(skipped, featureSkips...)

	return bundle, skipped, nil
}

type featureBatch struct {
	index int
	ids   []string
}

type featureBatchResult struct {
	batch    featureBatch
	features map[string]models.AudioFeatures
	err      error
}

// fetchFeatures resolves audio-feature vectors for trackIDs, issuing one
// call per batch of at most opts.FeatureBatchSize IDs under a bounded
// worker pool and a shared rate limiter. A failed batch drops only its
// own IDs; other batches still populate the map.
func fetchFeatures(ctx context.Context, svc services.MusicService, trackIDs []string, opts FetchOpts, progress chan<- ProgressUpdate) (map[string]models.AudioFeatures, []SkippedResource) {
	features := make(map[string]models.AudioFeatures, len(trackIDs))
	if len(trackIDs) == 0 {
		return features, nil
	}

	var batches []featureBatch
	for start := 0; start < len(trackIDs); start += opts.FeatureBatchSize {
		end := min(start+opts.FeatureBatchSize, len(trackIDs))
		batches = append(batches, featureBatch{index: len(batches), ids: trackIDs[start:end]})
	}

	workers := min(opts.FeatureWorkers, len(batches))
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan featureBatch, len(batches))
	results := make(chan featureBatchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					results <- featureBatchResult{batch: batch, err: err}
					continue
				}
				got, err := svc.AudioFeatures(ctx, batch.ids)
				results <- featureBatchResult{batch: batch, features: got, err: err}
			}
		}()
	}

	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var skipped []SkippedResource
	completed := 0
	for res := range results {
		completed++
		sendProgress(progress, featureBatchUpdate(completed, len(batches)))

		if res.err != nil {
			skipped = append(skipped, SkippedResource{
				Resource: fmt.Sprintf("audioFeatures.batch%d", res.batch.index),
				Reason:   res.err.Error(),
			})
			continue
		}
		for id, f := range res.features {
			features[id] = f
		}
	}

	return features, skipped
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls a fetch.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
