// package repositories implements the SQLite-backed cache for user
// listening data, analysis artifacts, track snapshots, and credentials.
package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/desertthunder/aura/internal/shared"
)

// Record kind tables. Each holds one JSON document per user, replaced
// wholesale on save.
const (
	tableUserData       = "user_data"
	tableAnalysis       = "analysis"
	tableTrackSnapshots = "track_snapshots"
)

// Store is the cache handle. It owns no connection lifecycle beyond what
// it is constructed with; callers open the database on startup and close
// it on shutdown.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// saveDoc marshals payload and fully replaces the user's row in table.
// Replace-not-merge guarantees no stale leftover fields survive a sync
// that omitted a previously-present field.
func (s *Store) saveDoc(table, userID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &shared.StoreError{Op: "save " + table, Err: err}
	}

	query := "INSERT OR REPLACE INTO " + table + " (user_id, payload, last_updated) VALUES (?, ?, ?)"
	if _, err := s.db.Exec(query, userID, string(data), time.Now().UTC()); err != nil {
		return &shared.StoreError{Op: "save " + table, Err: err}
	}

	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx, so document reads can
// run standalone or inside a transaction alongside other reads.
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// loadDoc unmarshals the user's document from table into out and returns
// its last-updated timestamp. Absent rows yield shared.ErrNoCachedData.
func loadDoc(q rowQuerier, table, userID string, out any) (time.Time, error) {
	query := "SELECT payload, last_updated FROM " + table + " WHERE user_id = ?"

	var (
		payload     string
		lastUpdated time.Time
	)
	err := q.QueryRow(query, userID).Scan(&payload, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, shared.ErrNoCachedData
	}
	if err != nil {
		return time.Time{}, &shared.StoreError{Op: "load " + table, Err: err}
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return time.Time{}, &shared.StoreError{Op: "decode " + table, Err: err}
	}

	return lastUpdated, nil
}
