// package services implements the Spotify Web API client and credential handling
package services

import (
	"context"

	"github.com/desertthunder/aura/internal/models"
	"golang.org/x/oauth2"
)

// TokenProvider supplies the current access credential per call and
// refreshes it when it has been rejected. The API client holds no
// long-lived copy; it re-reads the credential on every request.
type TokenProvider interface {
	// Token returns a credential valid for use right now, refreshing an
	// expired one before handing it out.
	Token(ctx context.Context) (*oauth2.Token, error)

	// Refresh exchanges the refresh token for a new credential. The stale
	// argument is the token the caller found rejected; when another caller
	// already completed a refresh, the newer token is returned without a
	// duplicate refresh round trip.
	Refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error)
}

// MusicService defines the upstream API surface the batch fetcher consumes.
type MusicService interface {
	// Profile retrieves the authenticated user's identity snapshot.
	Profile(ctx context.Context) (*models.UserProfile, error)

	// TopTracks retrieves the user's most played tracks for one time window.
	TopTracks(ctx context.Context, window models.TimeRange, limit int) ([]models.Track, error)

	// TopArtists retrieves the user's most played artists for one time window.
	TopArtists(ctx context.Context, window models.TimeRange, limit int) ([]models.Artist, error)

	// RecentlyPlayed retrieves the user's recent listening history.
	RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error)

	// SavedTracks retrieves the user's full saved-track library.
	SavedTracks(ctx context.Context) ([]models.Track, error)

	// Playlists retrieves all playlists in the user's library.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// AudioFeatures retrieves feature vectors for up to 100 track IDs.
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error)

	// Recommendations retrieves tracks related to the given seed track IDs.
	// Exposed for route layers; the profile sync never calls it.
	Recommendations(ctx context.Context, seedTracks []string, limit int) ([]models.Track, error)

	// Name returns the service name (e.g., "Spotify")
	Name() string
}
