package tasks

import "fmt"

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Sync phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CheckCache Phase = iota
	CacheHit
	FetchProfile
	FetchTopTracks
	FetchTopArtists
	FetchRecent
	FetchSaved
	FetchPlaylists
	FetchFeatures
	Aggregate
	Persist
	Done
)

func (p Phase) String() string {
	switch p {
	case CheckCache:
		return "check_cache"
	case CacheHit:
		return "cache_hit"
	case FetchProfile:
		return "fetch_profile"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case FetchTopArtists:
		return "fetch_top_artists"
	case FetchRecent:
		return "fetch_recent"
	case FetchSaved:
		return "fetch_saved"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchFeatures:
		return "fetch_features"
	case Aggregate:
		return "aggregate"
	case Persist:
		return "persist"
	case Done:
		return "done"
	default:
		return ""
	}
}

func checkCacheUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: CheckCache, Step: 1, Total: 1, Message: "Checking cache freshness..."}
}

func cacheHitUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: CacheHit, Step: 1, Total: 1, Message: "Cache fresh, skipping fetch"}
}

func fetchResourceUpdate(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Step: 1, Total: 1, Message: message}
}

func featureBatchUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching audio features (batch %d/%d)...", step, total),
	}
}

func aggregateUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Aggregate, Step: 1, Total: 1, Message: "Aggregating listening profile..."}
}

func persistUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Persist, Step: 1, Total: 1, Message: "Persisting profile to cache..."}
}

func doneUpdate(skipped int) ProgressUpdate {
	message := "Sync complete"
	if skipped > 0 {
		message = fmt.Sprintf("Sync complete (%d resources skipped)", skipped)
	}
	return ProgressUpdate{Phase: Done, Step: 1, Total: 1, Message: message}
}
