package tasks

import (
	"sort"

	"github.com/desertthunder/aura/internal/models"
)

// topGenreCount caps the ranked genre table.
const topGenreCount = 10

// AggregateBundle reduces a fetched bundle into its analysis artifact.
//
// Pure function: no I/O, no clock, deterministic for identical input.
// Missing inputs are treated as zero-count or absent, never as errors.
func AggregateBundle(bundle *models.Bundle) models.Analysis {
	return models.Analysis{
		TopGenres:       topGenres(bundle),
		AudioProfile:    audioProfile(bundle),
		ArtistDiversity: artistDiversity(bundle),
	}
}

// topGenres counts genre tags over every artist appearing in the
// top-artist windows, descending by count with ties broken by first-seen
// order, capped at topGenreCount.
func topGenres(bundle *models.Bundle) []models.GenreCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for _, window := range models.TimeRanges() {
		for _, artist := range bundle.TopArtists[window] {
			for _, genre := range artist.Genres {
				if _, seen := counts[genre]; !seen {
					firstSeen[genre] = len(firstSeen)
				}
				counts[genre]++
			}
		}
	}

	genres := make([]models.GenreCount, 0, len(counts))
	for genre, count := range counts {
		genres = append(genres, models.GenreCount{Genre: genre, Count: count})
	}

	sort.SliceStable(genres, func(i, j int) bool {
		if genres[i].Count != genres[j].Count {
			return genres[i].Count > genres[j].Count
		}
		return firstSeen[genres[i].Genre] < firstSeen[genres[j].Genre]
	})

	if len(genres) > topGenreCount {
		genres = genres[:topGenreCount]
	}
	return genres
}

// audioProfile averages the six profile fields over tracks that resolved
// a feature vector. Tracks without a vector are excluded from the mean,
// not treated as zero. Returns nil when no track has a vector so an empty
// library never reads as a silent profile.
func audioProfile(bundle *models.Bundle) *models.AudioProfile {
	var profile models.AudioProfile
	count := 0

	// Iterate in first-seen track order rather than map order so identical
	// bundles accumulate floats identically.
	for _, id := range bundle.TrackIDs() {
		f, ok := bundle.AudioFeatures[id]
		if !ok {
			continue
		}
		profile.Acousticness += f.Acousticness
		profile.Danceability += f.Danceability
		profile.Energy += f.Energy
		profile.Instrumentalness += f.Instrumentalness
		profile.Valence += f.Valence
		profile.Tempo += f.Tempo
		count++
	}

	if count == 0 {
		return nil
	}

	n := float64(count)
	profile.Acousticness /= n
	profile.Danceability /= n
	profile.Energy /= n
	profile.Instrumentalness /= n
	profile.Valence /= n
	profile.Tempo /= n

	return &profile
}

// artistDiversity divides the unique-artist count across all top-artist
// windows by the total slot count, bounded to [0, 1]. A single artist
// repeated across every window scores low; all-unique scores 1.
func artistDiversity(bundle *models.Bundle) float64 {
	unique := make(map[string]bool)
	slots := 0

	for _, window := range models.TimeRanges() {
		for _, artist := range bundle.TopArtists[window] {
			slots++
			unique[artist.ID] = true
		}
	}

	if slots == 0 {
		return 0
	}

	diversity := float64(len(unique)) / float64(slots)
	if diversity > 1 {
		diversity = 1
	}
	return diversity
}
