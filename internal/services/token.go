package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/aura/internal/shared"
	"golang.org/x/oauth2"
)

// CredentialStore persists credentials keyed by user identity.
// Implemented by the repositories layer.
type CredentialStore interface {
	LoadCredential(userID string) (*oauth2.Token, error)
	SaveCredential(userID string, token *oauth2.Token) error
}

// StoreTokenProvider implements [TokenProvider] backed by a credential
// store and an OAuth2 config for refresh exchanges.
//
// Refreshes are single-flight per provider: a caller that hits
// "unauthorized" while another refresh is in flight blocks on the mutex
// and receives the already-refreshed token instead of issuing a duplicate
// refresh call. Duplicate refreshes can invalidate refresh tokens on some
// providers.
type StoreTokenProvider struct {
	config *oauth2.Config
	store  CredentialStore
	userID string

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewStoreTokenProvider creates a provider for the given user backed by store.
func NewStoreTokenProvider(config *oauth2.Config, store CredentialStore, userID string) *StoreTokenProvider {
	return &StoreTokenProvider{
		config: config,
		store:  store,
		userID: userID,
	}
}

// Seed installs a token obtained out of band (e.g., the OAuth callback
// flow) and persists it.
func (p *StoreTokenProvider) Seed(token *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = token
	if p.store == nil {
		return nil
	}
	return p.store.SaveCredential(p.userID, token)
}

// Token returns a credential valid for use right now. An expired
// credential is refreshed before being handed out; it is never returned
// for a second attempt without a refresh.
func (p *StoreTokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		if err := p.loadLocked(); err != nil {
			return nil, err
		}
	}

	if p.cached.Valid() {
		return p.cached, nil
	}

	return p.refreshLocked(ctx)
}

// Refresh exchanges the refresh token for a new credential. When the
// cached token already differs from stale, a concurrent caller finished
// the refresh first and the newer token is returned as-is.
func (p *StoreTokenProvider) Refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && stale != nil && p.cached.AccessToken != stale.AccessToken {
		return p.cached, nil
	}

	return p.refreshLocked(ctx)
}

// loadLocked populates the cache from the store. Caller holds p.mu.
func (p *StoreTokenProvider) loadLocked() error {
	if p.store == nil {
		return shared.ErrNotAuthenticated
	}

	token, err := p.store.LoadCredential(p.userID)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if token == nil {
		return shared.ErrNotAuthenticated
	}

	p.cached = token
	return nil
}

// refreshLocked performs the refresh exchange and persists the result.
// Caller holds p.mu.
func (p *StoreTokenProvider) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	if p.cached == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if p.cached.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := p.config.TokenSource(ctx, p.cached).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// Some providers omit the refresh token on renewal; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = p.cached.RefreshToken
	}

	p.cached = token

	if p.store != nil {
		if err := p.store.SaveCredential(p.userID, token); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
		}
	}

	return token, nil
}
