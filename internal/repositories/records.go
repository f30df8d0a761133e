package repositories

import (
	"errors"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
)

// SaveUserData replaces the user's raw listening-data record.
func (s *Store) SaveUserData(userID string, bundle *models.Bundle) error {
	return s.saveDoc(tableUserData, userID, bundle)
}

// LoadUserData retrieves the user's raw listening-data record and its
// last-updated timestamp. Returns shared.ErrNoCachedData when absent.
func (s *Store) LoadUserData(userID string) (*models.Bundle, time.Time, error) {
	var bundle models.Bundle
	updated, err := loadDoc(s.db, tableUserData, userID, &bundle)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &bundle, updated, nil
}

// SaveAnalysis replaces the user's analysis artifact.
func (s *Store) SaveAnalysis(userID string, analysis *models.Analysis) error {
	return s.saveDoc(tableAnalysis, userID, analysis)
}

// LoadAnalysis retrieves the user's analysis artifact.
func (s *Store) LoadAnalysis(userID string) (*models.Analysis, time.Time, error) {
	var analysis models.Analysis
	updated, err := loadDoc(s.db, tableAnalysis, userID, &analysis)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &analysis, updated, nil
}

// SaveTrackSnapshot replaces the auxiliary track-list snapshot.
func (s *Store) SaveTrackSnapshot(userID string, snapshot *models.TrackSnapshot) error {
	return s.saveDoc(tableTrackSnapshots, userID, snapshot)
}

// LoadTrackSnapshot retrieves the auxiliary track-list snapshot.
func (s *Store) LoadTrackSnapshot(userID string) (*models.TrackSnapshot, time.Time, error) {
	var snapshot models.TrackSnapshot
	updated, err := loadDoc(s.db, tableTrackSnapshots, userID, &snapshot)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &snapshot, updated, nil
}

// IsFresh reports whether the user's raw-data record exists and is newer
// than maxAge. The staleness policy lives here, not in the orchestrator.
func (s *Store) IsFresh(userID string, maxAge time.Duration) (bool, error) {
	var lastUpdated time.Time
	err := s.db.QueryRow("SELECT last_updated FROM user_data WHERE user_id = ?", userID).Scan(&lastUpdated)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, &shared.StoreError{Op: "check freshness", Err: err}
	}

	return time.Since(lastUpdated) <= maxAge, nil
}

// Summarize composes the read-only summary view from the raw-data and
// analysis records without touching the upstream API. Returns
// shared.ErrNoCachedData when no raw record exists. Both records are
// read in one transaction, so a concurrent Clear yields either the
// pre-clear or post-clear state, never raw data with a missing analysis.
func (s *Store) Summarize(userID string) (*models.DataSummary, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &shared.StoreError{Op: "summarize", Err: err}
	}
	defer tx.Rollback()

	var bundle models.Bundle
	updated, err := loadDoc(tx, tableUserData, userID, &bundle)
	if err != nil {
		return nil, err
	}

	summary := &models.DataSummary{
		UserID:          userID,
		TopTrackCounts:  make(map[models.TimeRange]int),
		TopArtistCounts: make(map[models.TimeRange]int),
		RecentCount:     len(bundle.RecentlyPlayed),
		SavedCount:      len(bundle.SavedTracks),
		PlaylistCount:   len(bundle.Playlists),
		LastUpdated:     updated,
	}
	if bundle.Profile != nil {
		summary.Profile = *bundle.Profile
	}
	for _, window := range models.TimeRanges() {
		summary.TopTrackCounts[window] = len(bundle.TopTracks[window])
		summary.TopArtistCounts[window] = len(bundle.TopArtists[window])
	}

	var analysis models.Analysis
	if _, err := loadDoc(tx, tableAnalysis, userID, &analysis); err != nil {
		if !errors.Is(err, shared.ErrNoCachedData) {
			return nil, err
		}
	} else {
		summary.Analysis = &analysis
	}

	if err := tx.Commit(); err != nil {
		return nil, &shared.StoreError{Op: "summarize", Err: err}
	}

	return summary, nil
}

// Clear removes the user's raw-data, analysis, and snapshot records in
// one transaction; a concurrent Summarize sees either all three records
// or none of them.
func (s *Store) Clear(userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &shared.StoreError{Op: "clear", Err: err}
	}
	defer tx.Rollback()

	for _, table := range []string{tableUserData, tableAnalysis, tableTrackSnapshots} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return &shared.StoreError{Op: "clear " + table, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &shared.StoreError{Op: "clear", Err: err}
	}

	return nil
}
