package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/aura/internal/server"
	"github.com/desertthunder/aura/internal/services"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, resolves the account identity, and
// persists both the credential and the account ID.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.loadConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingConfig, configPath)
	}

	oauthConfig, err := services.NewOAuthConfig(
		config.Credentials.Spotify.ClientID,
		config.Credentials.Spotify.ClientSecret,
		config.Credentials.Spotify.RedirectURI,
	)
	if err != nil {
		return fmt.Errorf("failed to build oauth config: %w", err)
	}

	token, err := r.doOAuth(config, oauthConfig)
	if err != nil {
		return err
	}

	// The account ID keys every cached record, so resolve it up front
	// with the freshly issued credential.
	provider := services.NewStoreTokenProvider(oauthConfig, nil, "")
	if err := provider.Seed(token); err != nil {
		return fmt.Errorf("failed to seed credential: %w", err)
	}

	client := services.NewSpotifyClient(provider, r.httpClient, "")
	profile, err := client.Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve account identity: %w", err)
	}

	store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveCredential(profile.ID, token); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	config.Credentials.Spotify.UserID = profile.ID
	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Signed in as %s (%s)\n", profile.DisplayName, profile.ID)
	r.writePlain("✓ Credential saved, account recorded in %s\n\n", configPath)
	r.writePlain("You can now use: aura sync\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
