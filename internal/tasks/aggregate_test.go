package tasks

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/desertthunder/aura/internal/models"
)

func artistWithGenres(id string, genres ...string) models.Artist {
	return models.Artist{ID: id, Name: id, Genres: genres}
}

func TestAggregateBundle(t *testing.T) {
	t.Run("TopGenres", func(t *testing.T) {
		t.Run("Counts Across Windows Descending", func(t *testing.T) {
			bundle := &models.Bundle{
				TopArtists: map[models.TimeRange][]models.Artist{
					models.TimeRangeShort: {
						artistWithGenres("a1", "indie rock", "pop"),
					},
					models.TimeRangeMedium: {
						artistWithGenres("a2", "indie rock"),
					},
				},
			}

			analysis := AggregateBundle(bundle)

			want := []models.GenreCount{
				{Genre: "indie rock", Count: 2},
				{Genre: "pop", Count: 1},
			}
			if !reflect.DeepEqual(analysis.TopGenres, want) {
				t.Errorf("got %+v, want %+v", analysis.TopGenres, want)
			}
		})

		t.Run("Ties Break By First Seen", func(t *testing.T) {
			bundle := &models.Bundle{
				TopArtists: map[models.TimeRange][]models.Artist{
					models.TimeRangeShort: {
						artistWithGenres("a1", "shoegaze", "dream pop"),
					},
				},
			}

			analysis := AggregateBundle(bundle)

			if analysis.TopGenres[0].Genre != "shoegaze" || analysis.TopGenres[1].Genre != "dream pop" {
				t.Errorf("expected first-seen order for tied counts, got %+v", analysis.TopGenres)
			}
		})

		t.Run("Caps At Ten", func(t *testing.T) {
			genres := make([]string, 15)
			for i := range genres {
				genres[i] = fmt.Sprintf("genre-%02d", i)
			}
			bundle := &models.Bundle{
				TopArtists: map[models.TimeRange][]models.Artist{
					models.TimeRangeShort: {artistWithGenres("a1", genres...)},
				},
			}

			analysis := AggregateBundle(bundle)

			if len(analysis.TopGenres) != 10 {
				t.Errorf("expected 10 genres, got %d", len(analysis.TopGenres))
			}
		})

		t.Run("Empty Input", func(t *testing.T) {
			analysis := AggregateBundle(&models.Bundle{})
			if len(analysis.TopGenres) != 0 {
				t.Errorf("expected no genres, got %+v", analysis.TopGenres)
			}
		})
	})

	t.Run("AudioProfile", func(t *testing.T) {
		t.Run("Excludes Tracks Without Vectors", func(t *testing.T) {
			bundle := &models.Bundle{
				SavedTracks: []models.Track{
					{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
				},
				AudioFeatures: map[string]models.AudioFeatures{
					"t2": {TrackID: "t2", Energy: 0.9, Tempo: 140, Valence: 0.3},
				},
			}

			analysis := AggregateBundle(bundle)

			if analysis.AudioProfile == nil {
				t.Fatal("expected a profile when one track has a vector")
			}
			// Mean over one vector equals that vector, not a third of it.
			if analysis.AudioProfile.Energy != 0.9 || analysis.AudioProfile.Tempo != 140 {
				t.Errorf("unexpected profile %+v", analysis.AudioProfile)
			}
		})

		t.Run("Averages Multiple Vectors", func(t *testing.T) {
			bundle := &models.Bundle{
				SavedTracks: []models.Track{{ID: "t1"}, {ID: "t2"}},
				AudioFeatures: map[string]models.AudioFeatures{
					"t1": {Energy: 0.2, Danceability: 0.4, Tempo: 100},
					"t2": {Energy: 0.6, Danceability: 0.8, Tempo: 140},
				},
			}

			analysis := AggregateBundle(bundle)

			if math.Abs(analysis.AudioProfile.Energy-0.4) > 1e-9 {
				t.Errorf("expected energy 0.4, got %f", analysis.AudioProfile.Energy)
			}
			if math.Abs(analysis.AudioProfile.Danceability-0.6) > 1e-9 {
				t.Errorf("expected danceability 0.6, got %f", analysis.AudioProfile.Danceability)
			}
			if math.Abs(analysis.AudioProfile.Tempo-120) > 1e-9 {
				t.Errorf("expected tempo 120, got %f", analysis.AudioProfile.Tempo)
			}
		})

		t.Run("Nil When No Vectors", func(t *testing.T) {
			bundle := &models.Bundle{
				SavedTracks: []models.Track{{ID: "t1"}},
			}
			if analysis := AggregateBundle(bundle); analysis.AudioProfile != nil {
				t.Errorf("expected nil profile, got %+v", analysis.AudioProfile)
			}
		})

		t.Run("Deterministic Across Runs", func(t *testing.T) {
			bundle := &models.Bundle{
				SavedTracks:   make([]models.Track, 50),
				AudioFeatures: make(map[string]models.AudioFeatures, 50),
			}
			for i := range bundle.SavedTracks {
				id := fmt.Sprintf("t%d", i)
				bundle.SavedTracks[i] = models.Track{ID: id}
				bundle.AudioFeatures[id] = models.AudioFeatures{
					Energy: 0.1 + float64(i)*0.017,
					Tempo:  90 + float64(i)*1.3,
				}
			}

			first := AggregateBundle(bundle)
			for i := 0; i < 10; i++ {
				again := AggregateBundle(bundle)
				if *again.AudioProfile != *first.AudioProfile {
					t.Fatalf("run %d produced %+v, want %+v", i, again.AudioProfile, first.AudioProfile)
				}
			}
		})
	})

	t.Run("ArtistDiversity", func(t *testing.T) {
		t.Run("All Unique Scores One", func(t *testing.T) {
			bundle := &models.Bundle{
				TopArtists: map[models.TimeRange][]models.Artist{
					models.TimeRangeShort: {artistWithGenres("a1"), artistWithGenres("a2")},
					models.TimeRangeLong:  {artistWithGenres("a3")},
				},
			}
			if d := AggregateBundle(bundle).ArtistDiversity; d != 1 {
				t.Errorf("expected 1, got %f", d)
			}
		})

		t.Run("Repeats Lower The Score", func(t *testing.T) {
			bundle := &models.Bundle{
				TopArtists: map[models.TimeRange][]models.Artist{
					models.TimeRangeShort:  {artistWithGenres("a1")},
					models.TimeRangeMedium: {artistWithGenres("a1")},
					models.TimeRangeLong:   {artistWithGenres("a1"), artistWithGenres("a2")},
				},
			}
			if d := AggregateBundle(bundle).ArtistDiversity; d != 0.5 {
				t.Errorf("expected 0.5, got %f", d)
			}
		})

		t.Run("No Slots Scores Zero", func(t *testing.T) {
			if d := AggregateBundle(&models.Bundle{}).ArtistDiversity; d != 0 {
				t.Errorf("expected 0, got %f", d)
			}
		})
	})
}
