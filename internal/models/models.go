package models

import (
	"time"
)

// TimeRange identifies one of the three fixed listening-history windows
// used by the Spotify top-items endpoints.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

// TimeRanges returns all windows in display order (shortest first).
func TimeRanges() []TimeRange {
	return []TimeRange{TimeRangeShort, TimeRangeMedium, TimeRangeLong}
}

// UserProfile is a snapshot of the service-reported identity for a user.
// Replaced wholesale on each sync.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Followers   int    `json:"followers"`
}

// Artist represents an artist with its declared genre tags.
type Artist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Genres      []string `json:"genres,omitempty"`
	Popularity  int      `json:"popularity,omitempty"`
	ExternalURL string   `json:"external_url,omitempty"`
}

// Track represents a music track; ID is the natural key and feature
// lookups key off it.
type Track struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Artists     []Artist   `json:"artists"`
	Album       string     `json:"album,omitempty"`
	DurationMS  int        `json:"duration_ms"`
	Popularity  int        `json:"popularity,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
	AddedAt     *time.Time `json:"added_at,omitempty"`
}

// Playlist represents playlist metadata from the user's library.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// AudioFeatures is the provider-computed descriptor of a track's acoustic character.
//
// Bounded fields: acousticness, danceability, energy, instrumentalness,
// liveness, speechiness, and valence are in [0, 1]; loudness is in dB
// (typically [-60, 0]); tempo is BPM; key is pitch class [-1, 11]
// (-1 = undetected); mode is 0 (minor) or 1 (major); time_signature is
// beats per bar [3, 7].
type AudioFeatures struct {
	TrackID          string  `json:"track_id"`
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

// Bundle is the best-effort result of one batch fetch: the user's profile
// plus every listening-history resource that could be retrieved. Fields
// for resources that failed are left empty.
type Bundle struct {
	Profile        *UserProfile             `json:"profile,omitempty"`
	TopTracks      map[TimeRange][]Track    `json:"top_tracks,omitempty"`
	TopArtists     map[TimeRange][]Artist   `json:"top_artists,omitempty"`
	RecentlyPlayed []Track                  `json:"recently_played,omitempty"`
	SavedTracks    []Track                  `json:"saved_tracks,omitempty"`
	Playlists      []Playlist               `json:"playlists,omitempty"`
	AudioFeatures  map[string]AudioFeatures `json:"audio_features,omitempty"`
}

// TrackIDs returns every distinct track ID across the bundle's buckets in
// first-seen order: top tracks (short, medium, long), recently played,
// then saved tracks.
func (b *Bundle) TrackIDs() []string {
	seen := make(map[string]bool)
	var ids []string

	add := func(tracks []Track) {
		for _, t := range tracks {
			if t.ID == "" || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			ids = append(ids, t.ID)
		}
	}

	for _, tr := range TimeRanges() {
		add(b.TopTracks[tr])
	}
	add(b.RecentlyPlayed)
	add(b.SavedTracks)

	return ids
}

// GenreCount is one entry of the ranked genre frequency table.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// AudioProfile is the averaged audio-feature vector over all tracks that
// have a resolved feature vector.
type AudioProfile struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// Analysis is the derived music profile for a user. AudioProfile is nil
// when no track in the source bundle had a feature vector.
type Analysis struct {
	TopGenres       []GenreCount  `json:"top_genres"`
	AudioProfile    *AudioProfile `json:"audio_profile,omitempty"`
	ArtistDiversity float64       `json:"artist_diversity"`
}

// TrackSnapshot is the auxiliary record kind: the deduped track-id order
// and feature map an analysis was derived from, persisted alongside it so
// the artifact never references data the cache no longer holds.
type TrackSnapshot struct {
	TrackIDs []string                 `json:"track_ids"`
	Features map[string]AudioFeatures `json:"features,omitempty"`
}

// DataSummary is the read-only view composed from the raw-data and
// analysis records; it is answered from the cache without any API calls.
type DataSummary struct {
	UserID          string            `json:"user_id"`
	Profile         UserProfile       `json:"profile"`
	TopTrackCounts  map[TimeRange]int `json:"top_track_counts,omitempty"`
	TopArtistCounts map[TimeRange]int `json:"top_artist_counts,omitempty"`
	RecentCount     int               `json:"recent_count"`
	SavedCount      int               `json:"saved_count"`
	PlaylistCount   int               `json:"playlist_count"`
	Analysis        *Analysis         `json:"analysis,omitempty"`
	LastUpdated     time.Time         `json:"last_updated"`
}
