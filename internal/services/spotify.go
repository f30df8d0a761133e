// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxFeatureBatchSize is the audio-features endpoint's per-call ID ceiling.
	MaxFeatureBatchSize = 100
)

// NewOAuthConfig builds the OAuth2 config for the Spotify authorization
// code flow with the scopes the profile sync requires.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-top-read",
			"user-read-recently-played",
			"user-library-read",
			"playlist-read-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Country     string    `json:"country"`
	Followers   followers `json:"followers"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist with its declared genre tags.
type SpotifyArtist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres"`
	Popularity   int          `json:"popularity"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyPlayHistory represents one recently-played entry.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyAudioFeatures represents the audio-features object for one track.
// Null entries in the batch response mean the track has no features.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
}

// SpotifyClient implements [MusicService] against the Spotify Web API.
//
// The client is purely reactive: it holds no credential state beyond the
// per-call request, re-reading the token from its [TokenProvider] each time.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

var _ MusicService = (*SpotifyClient)(nil)

// NewSpotifyClient creates a Spotify client using tokens for credentials.
// The base URL and HTTP client are overridable for testing.
func NewSpotifyClient(tokens TokenProvider, httpClient *http.Client, baseURL string) *SpotifyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	return &SpotifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

func (c *SpotifyClient) Name() string {
	return "Spotify"
}

// issue performs a single bearer-authenticated request.
func (c *SpotifyClient) issue(ctx context.Context, method, endpoint string, token *oauth2.Token) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// doRequest performs an authenticated request with exactly one
// refresh-and-retry cycle on an unauthorized response.
//
// A second unauthorized response escalates as [shared.AuthError]; no
// further retries are attempted, so a credential the provider keeps
// rejecting can never loop. Any other non-2xx status surfaces as
// [shared.APIError] with the response body attached, and transport
// failures as [shared.NetworkError].
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, result any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &shared.AuthError{Reason: "no usable credential", Err: err}
	}

	resp, err := c.issue(ctx, method, endpoint, token)
	if err != nil {
		return &shared.NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		fresh, err := c.tokens.Refresh(ctx, token)
		if err != nil {
			return &shared.AuthError{Reason: "token refresh failed", Err: err}
		}

		resp, err = c.issue(ctx, method, endpoint, fresh)
		if err != nil {
			return &shared.NetworkError{Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &shared.AuthError{Reason: "credential rejected after refresh"}
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &shared.APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Profile retrieves the current authenticated user's identity snapshot.
func (c *SpotifyClient) Profile(ctx context.Context) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", &user); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Country:     user.Country,
		Followers:   user.Followers.Total,
	}, nil
}

// TopTracks retrieves the user's most played tracks for one time window.
// Provider relevance rank order is preserved.
func (c *SpotifyClient) TopTracks(ctx context.Context, window models.TimeRange, limit int) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", window, clampLimit(limit))

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, mapTrack(item))
	}
	return tracks, nil
}

// TopArtists retrieves the user's most played artists for one time window.
func (c *SpotifyClient) TopArtists(ctx context.Context, window models.TimeRange, limit int) ([]models.Artist, error) {
	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", window, clampLimit(limit))

	var response struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Items))
	for _, item := range response.Items {
		artists = append(artists, mapArtist(item))
	}
	return artists, nil
}

// RecentlyPlayed retrieves the user's recent listening history.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", clampLimit(limit))

	var response struct {
		Items []SpotifyPlayHistory `json:"items"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		track := mapTrack(item.Track)
		if playedAt, err := time.Parse(time.RFC3339, item.PlayedAt); err == nil {
			track.PlayedAt = &playedAt
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// SavedTracks retrieves the user's full saved-track library, walking pagination.
func (c *SpotifyClient) SavedTracks(ctx context.Context) ([]models.Track, error) {
	var all []models.Track
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

		var response SpotifyPaginatedTracks
		if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			track := mapTrack(item.Track)
			if addedAt, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
				track.AddedAt = &addedAt
			}
			all = append(all, track)
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}

	return all, nil
}

// Playlists retrieves all playlists in the user's library, walking pagination.
func (c *SpotifyClient) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var response SpotifyPaginatedPlaylists
		if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			all = append(all, models.Playlist{
				ID:          item.ID,
				Name:        item.Name,
				Description: item.Description,
				TrackCount:  item.Tracks.Total,
				Public:      item.Public,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}

	return all, nil
}

// AudioFeatures retrieves feature vectors for up to 100 track IDs in one call.
// Tracks the provider has no features for are omitted from the result map.
func (c *SpotifyClient) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error) {
	if len(trackIDs) == 0 {
		return map[string]models.AudioFeatures{}, nil
	}
	if len(trackIDs) > MaxFeatureBatchSize {
		return nil, fmt.Errorf("%w: maximum %d track IDs per audio-features call", shared.ErrInvalidInput, MaxFeatureBatchSize)
	}

	ids := strings.Join(trackIDs, ",")
	endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(ids))

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	features := make(map[string]models.AudioFeatures, len(response.AudioFeatures))
	for _, f := range response.AudioFeatures {
		if f == nil || f.ID == "" {
			continue
		}
		features[f.ID] = mapFeatures(f)
	}
	return features, nil
}

// Recommendations retrieves tracks related to the given seed track IDs (up to 5 seeds).
func (c *SpotifyClient) Recommendations(ctx context.Context, seedTracks []string, limit int) ([]models.Track, error) {
	if len(seedTracks) == 0 {
		return nil, fmt.Errorf("%w: at least one seed track is required", shared.ErrInvalidInput)
	}
	if len(seedTracks) > 5 {
		seedTracks = seedTracks[:5]
	}

	seeds := strings.Join(seedTracks, ",")
	endpoint := fmt.Sprintf("/recommendations?seed_tracks=%s&limit=%d", url.QueryEscape(seeds), clampLimit(limit))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks))
	for _, item := range response.Tracks {
		tracks = append(tracks, mapTrack(item))
	}
	return tracks, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// mapTrack converts a wire track into the domain type.
func mapTrack(t SpotifyTrack) models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, mapArtist(a))
	}

	return models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		DurationMS:  t.DurationMS,
		Popularity:  t.Popularity,
		ExternalURL: t.ExternalURLs.Spotify,
	}
}

// mapArtist converts a wire artist into the domain type.
func mapArtist(a SpotifyArtist) models.Artist {
	return models.Artist{
		ID:          a.ID,
		Name:        a.Name,
		Genres:      a.Genres,
		Popularity:  a.Popularity,
		ExternalURL: a.ExternalURLs.Spotify,
	}
}

// mapFeatures converts a wire feature vector into the domain type.
func mapFeatures(f *SpotifyAudioFeatures) models.AudioFeatures {
	return models.AudioFeatures{
		TrackID:          f.ID,
		Acousticness:     f.Acousticness,
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Loudness:         f.Loudness,
		Speechiness:      f.Speechiness,
		Tempo:            f.Tempo,
		Valence:          f.Valence,
		Key:              f.Key,
		Mode:             f.Mode,
		TimeSignature:    f.TimeSignature,
	}
}
