package repositories

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestStore creates a store over an in-memory SQLite database with
// migrations applied.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// An in-memory database exists per connection, so the pool must
	// stay at one connection or goroutines see different databases.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBundle() *models.Bundle {
	return &models.Bundle{
		Profile: &models.UserProfile{ID: "u1", DisplayName: "User One", Country: "US", Followers: 3},
		TopTracks: map[models.TimeRange][]models.Track{
			models.TimeRangeShort: {{ID: "t1", Name: "Song"}},
		},
		TopArtists: map[models.TimeRange][]models.Artist{
			models.TimeRangeShort: {{ID: "a1", Name: "Artist", Genres: []string{"indie rock"}}},
			models.TimeRangeLong:  {{ID: "a2", Name: "Other"}},
		},
		RecentlyPlayed: []models.Track{{ID: "t2"}},
		SavedTracks:    []models.Track{{ID: "t3"}, {ID: "t4"}},
		Playlists:      []models.Playlist{{ID: "p1", Name: "Mix", TrackCount: 10}},
		AudioFeatures: map[string]models.AudioFeatures{
			"t1": {TrackID: "t1", Energy: 0.7, Tempo: 128},
		},
	}
}

func TestUserDataRecords(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		store := setupTestStore(t)
		bundle := testBundle()

		if err := store.SaveUserData("u1", bundle); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded, updated, err := store.LoadUserData("u1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !reflect.DeepEqual(loaded, bundle) {
			t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", loaded, bundle)
		}
		if updated.IsZero() {
			t.Error("expected a last-updated timestamp")
		}
	})

	t.Run("Save Replaces Whole Record", func(t *testing.T) {
		store := setupTestStore(t)

		if err := store.SaveUserData("u1", testBundle()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		// Second sync lost playlists; the stored record must not keep the
		// old playlist field around.
		smaller := testBundle()
		smaller.Playlists = nil
		if err := store.SaveUserData("u1", smaller); err != nil {
			t.Fatalf("failed to resave: %v", err)
		}

		loaded, _, err := store.LoadUserData("u1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(loaded.Playlists) != 0 {
			t.Errorf("expected playlists replaced away, got %+v", loaded.Playlists)
		}
	})

	t.Run("Absent Record", func(t *testing.T) {
		store := setupTestStore(t)

		if _, _, err := store.LoadUserData("nobody"); !errors.Is(err, shared.ErrNoCachedData) {
			t.Errorf("expected ErrNoCachedData, got %v", err)
		}
	})
}

func TestAnalysisRecords(t *testing.T) {
	store := setupTestStore(t)

	analysis := &models.Analysis{
		TopGenres:       []models.GenreCount{{Genre: "indie rock", Count: 2}},
		AudioProfile:    &models.AudioProfile{Energy: 0.7, Tempo: 128},
		ArtistDiversity: 0.5,
	}

	if err := store.SaveAnalysis("u1", analysis); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, _, err := store.LoadAnalysis("u1")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if !reflect.DeepEqual(loaded, analysis) {
		t.Errorf("round trip mismatch: got %+v want %+v", loaded, analysis)
	}

	t.Run("Nil Audio Profile Survives", func(t *testing.T) {
		empty := &models.Analysis{ArtistDiversity: 0}
		if err := store.SaveAnalysis("u2", empty); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		loaded, _, err := store.LoadAnalysis("u2")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.AudioProfile != nil {
			t.Errorf("expected nil profile preserved, got %+v", loaded.AudioProfile)
		}
	})
}

func TestTrackSnapshotRecords(t *testing.T) {
	store := setupTestStore(t)

	snapshot := &models.TrackSnapshot{
		TrackIDs: []string{"t1", "t2", "t3"},
		Features: map[string]models.AudioFeatures{
			"t1": {TrackID: "t1", Energy: 0.7},
			"t3": {TrackID: "t3", Energy: 0.2},
		},
	}

	if err := store.SaveTrackSnapshot("u1", snapshot); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, _, err := store.LoadTrackSnapshot("u1")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if !reflect.DeepEqual(loaded, snapshot) {
		t.Errorf("round trip mismatch: got %+v want %+v", loaded, snapshot)
	}
}

func TestIsFresh(t *testing.T) {
	t.Run("No Record", func(t *testing.T) {
		store := setupTestStore(t)

		fresh, err := store.IsFresh("nobody", time.Hour)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fresh {
			t.Error("absent record can never be fresh")
		}
	})

	t.Run("Recent Record Is Fresh", func(t *testing.T) {
		store := setupTestStore(t)
		if err := store.SaveUserData("u1", testBundle()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		fresh, err := store.IsFresh("u1", time.Hour)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !fresh {
			t.Error("just-saved record should be fresh for an hour")
		}
	})

	t.Run("Old Record Is Stale", func(t *testing.T) {
		store := setupTestStore(t)
		if err := store.SaveUserData("u1", testBundle()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		fresh, err := store.IsFresh("u1", time.Nanosecond)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fresh {
			t.Error("record older than the max age should be stale")
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Run("Composes Both Records", func(t *testing.T) {
		store := setupTestStore(t)
		if err := store.SaveUserData("u1", testBundle()); err != nil {
			t.Fatalf("failed to save bundle: %v", err)
		}
		if err := store.SaveAnalysis("u1", &models.Analysis{ArtistDiversity: 1}); err != nil {
			t.Fatalf("failed to save analysis: %v", err)
		}

		summary, err := store.Summarize("u1")
		if err != nil {
			t.Fatalf("failed to summarize: %v", err)
		}
		if summary.Profile.DisplayName != "User One" {
			t.Errorf("unexpected profile %+v", summary.Profile)
		}
		if summary.TopTrackCounts[models.TimeRangeShort] != 1 {
			t.Errorf("unexpected top track counts %+v", summary.TopTrackCounts)
		}
		if summary.SavedCount != 2 || summary.RecentCount != 1 || summary.PlaylistCount != 1 {
			t.Errorf("unexpected counts %+v", summary)
		}
		if summary.Analysis == nil || summary.Analysis.ArtistDiversity != 1 {
			t.Errorf("expected analysis attached, got %+v", summary.Analysis)
		}
	})

	t.Run("Tolerates Missing Analysis", func(t *testing.T) {
		store := setupTestStore(t)
		if err := store.SaveUserData("u1", testBundle()); err != nil {
			t.Fatalf("failed to save bundle: %v", err)
		}

		summary, err := store.Summarize("u1")
		if err != nil {
			t.Fatalf("expected summary without analysis, got %v", err)
		}
		if summary.Analysis != nil {
			t.Errorf("expected nil analysis, got %+v", summary.Analysis)
		}
	})

	t.Run("No Cached Data", func(t *testing.T) {
		store := setupTestStore(t)

		if _, err := store.Summarize("nobody"); !errors.Is(err, shared.ErrNoCachedData) {
			t.Errorf("expected ErrNoCachedData, got %v", err)
		}
	})

	t.Run("Never Mixes States Across A Concurrent Clear", func(t *testing.T) {
		store := setupTestStore(t)
		bundle := testBundle()
		analysis := &models.Analysis{ArtistDiversity: 1}

		// The analysis is always written before the raw data, so any
		// summary that sees raw data must also see its analysis unless
		// a clear slipped between the two reads.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 500; i++ {
				if err := store.SaveAnalysis("u1", analysis); err != nil {
					t.Errorf("failed to save analysis: %v", err)
					return
				}
				if err := store.SaveUserData("u1", bundle); err != nil {
					t.Errorf("failed to save bundle: %v", err)
					return
				}
				if err := store.Clear("u1"); err != nil {
					t.Errorf("failed to clear: %v", err)
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			default:
			}

			summary, err := store.Summarize("u1")
			if errors.Is(err, shared.ErrNoCachedData) {
				continue
			}
			if err != nil {
				t.Fatalf("failed to summarize: %v", err)
			}
			if summary.Analysis == nil {
				t.Fatal("summary carries raw data from before a clear but no analysis")
			}
		}
	})
}

func TestClear(t *testing.T) {
	store := setupTestStore(t)

	if err := store.SaveUserData("u1", testBundle()); err != nil {
		t.Fatalf("failed to save bundle: %v", err)
	}
	if err := store.SaveAnalysis("u1", &models.Analysis{}); err != nil {
		t.Fatalf("failed to save analysis: %v", err)
	}
	if err := store.SaveTrackSnapshot("u1", &models.TrackSnapshot{TrackIDs: []string{"t1"}}); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if err := store.SaveUserData("u2", testBundle()); err != nil {
		t.Fatalf("failed to save second user: %v", err)
	}

	if err := store.Clear("u1"); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	if _, err := store.Summarize("u1"); !errors.Is(err, shared.ErrNoCachedData) {
		t.Errorf("expected cleared user to have no data, got %v", err)
	}
	if _, _, err := store.LoadAnalysis("u1"); !errors.Is(err, shared.ErrNoCachedData) {
		t.Errorf("expected analysis cleared, got %v", err)
	}
	if _, _, err := store.LoadTrackSnapshot("u1"); !errors.Is(err, shared.ErrNoCachedData) {
		t.Errorf("expected snapshot cleared, got %v", err)
	}
	if _, err := store.Summarize("u2"); err != nil {
		t.Errorf("other users must be untouched, got %v", err)
	}

	t.Run("Clearing Absent User Is Not An Error", func(t *testing.T) {
		if err := store.Clear("nobody"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestCredentials(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		store := setupTestStore(t)

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		token := &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       expiry,
		}

		if err := store.SaveCredential("u1", token); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded, err := store.LoadCredential("u1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", loaded)
		}
		if !loaded.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, loaded.Expiry)
		}
	})

	t.Run("Absent Credential Is Nil Nil", func(t *testing.T) {
		store := setupTestStore(t)

		token, err := store.LoadCredential("nobody")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != nil {
			t.Errorf("expected nil token, got %+v", token)
		}
	})

	t.Run("Save Replaces Existing", func(t *testing.T) {
		store := setupTestStore(t)

		if err := store.SaveCredential("u1", &oauth2.Token{AccessToken: "old"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := store.SaveCredential("u1", &oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("failed to resave: %v", err)
		}

		loaded, err := store.LoadCredential("u1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.AccessToken != "new" {
			t.Errorf("expected replacement, got %s", loaded.AccessToken)
		}
	})

	t.Run("ClearCredential", func(t *testing.T) {
		store := setupTestStore(t)

		if err := store.SaveCredential("u1", &oauth2.Token{AccessToken: "access"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := store.ClearCredential("u1"); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		token, err := store.LoadCredential("u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != nil {
			t.Errorf("expected credential removed, got %+v", token)
		}
	})
}
