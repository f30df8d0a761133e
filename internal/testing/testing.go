// package testing contains shared testing utilities
package testing

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/aura/internal/models"
)

// MockService is a configurable test double for [services.MusicService].
//
// Each endpoint delegates to its function field when set and otherwise
// returns an empty value. Calls increments for every endpoint invocation,
// so tests can assert zero-network behavior.
type MockService struct {
	Calls int64

	ProfileFunc        func(ctx context.Context) (*models.UserProfile, error)
	TopTracksFunc      func(ctx context.Context, window models.TimeRange, limit int) ([]models.Track, error)
	TopArtistsFunc     func(ctx context.Context, window models.TimeRange, limit int) ([]models.Artist, error)
	RecentlyPlayedFunc func(ctx context.Context, limit int) ([]models.Track, error)
	SavedTracksFunc    func(ctx context.Context) ([]models.Track, error)
	PlaylistsFunc      func(ctx context.Context) ([]models.Playlist, error)
	AudioFeaturesFunc  func(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error)
}

func (m *MockService) count() {
	atomic.AddInt64(&m.Calls, 1)
}

// CallCount returns the total number of endpoint invocations.
func (m *MockService) CallCount() int64 {
	return atomic.LoadInt64(&m.Calls)
}

func (m *MockService) Profile(ctx context.Context) (*models.UserProfile, error) {
	m.count()
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx)
	}
	return &models.UserProfile{ID: "mock-user"}, nil
}

func (m *MockService) TopTracks(ctx context.Context, window models.TimeRange, limit int) ([]models.Track, error) {
	m.count()
	if m.TopTracksFunc != nil {
		return m.TopTracksFunc(ctx, window, limit)
	}
	return nil, nil
}

func (m *MockService) TopArtists(ctx context.Context, window models.TimeRange, limit int) ([]models.Artist, error) {
	m.count()
	if m.TopArtistsFunc != nil {
		return m.TopArtistsFunc(ctx, window, limit)
	}
	return nil, nil
}

func (m *MockService) RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error) {
	m.count()
	if m.RecentlyPlayedFunc != nil {
		return m.RecentlyPlayedFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockService) SavedTracks(ctx context.Context) ([]models.Track, error) {
	m.count()
	if m.SavedTracksFunc != nil {
		return m.SavedTracksFunc(ctx)
	}
	return nil, nil
}

func (m *MockService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	m.count()
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx)
	}
	return nil, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error) {
	m.count()
	if m.AudioFeaturesFunc != nil {
		return m.AudioFeaturesFunc(ctx, trackIDs)
	}
	return map[string]models.AudioFeatures{}, nil
}

func (m *MockService) Recommendations(ctx context.Context, seedTracks []string, limit int) ([]models.Track, error) {
	m.count()
	return nil, nil
}

func (m *MockService) Name() string { return "mock" }

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// MustTrack builds a track with a single artist for test fixtures.
func MustTrack(t *testing.T, id, name, artistID, artistName string, genres ...string) models.Track {
	t.Helper()
	return models.Track{
		ID:   id,
		Name: name,
		Artists: []models.Artist{
			{ID: artistID, Name: artistName, Genres: genres},
		},
	}
}
