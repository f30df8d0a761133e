package repositories

import (
	"database/sql"
	"time"

	"github.com/desertthunder/aura/internal/shared"
	"golang.org/x/oauth2"
)

// SaveCredential replaces the user's stored OAuth2 credential.
func (s *Store) SaveCredential(userID string, token *oauth2.Token) error {
	query := `
		INSERT OR REPLACE INTO credentials (user_id, access_token, refresh_token, expires_at, last_updated)
		VALUES (?, ?, ?, ?, ?)
	`

	var expiresAt any
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry.UTC()
	}

	_, err := s.db.Exec(query, userID, token.AccessToken, token.RefreshToken, expiresAt, time.Now().UTC())
	if err != nil {
		return &shared.StoreError{Op: "save credential", Err: err}
	}

	return nil
}

// LoadCredential retrieves the user's stored OAuth2 credential.
// Returns (nil, nil) when no credential has been stored.
func (s *Store) LoadCredential(userID string) (*oauth2.Token, error) {
	query := "SELECT access_token, refresh_token, expires_at FROM credentials WHERE user_id = ?"

	var (
		accessToken  string
		refreshToken sql.NullString
		expiresAt    sql.NullTime
	)
	err := s.db.QueryRow(query, userID).Scan(&accessToken, &refreshToken, &expiresAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &shared.StoreError{Op: "load credential", Err: err}
	}

	token := &oauth2.Token{AccessToken: accessToken}
	if refreshToken.Valid {
		token.RefreshToken = refreshToken.String
	}
	if expiresAt.Valid {
		token.Expiry = expiresAt.Time
	}

	return token, nil
}

// ClearCredential removes the user's stored credential (logout).
func (s *Store) ClearCredential(userID string) error {
	if _, err := s.db.Exec("DELETE FROM credentials WHERE user_id = ?", userID); err != nil {
		return &shared.StoreError{Op: "clear credential", Err: err}
	}
	return nil
}
