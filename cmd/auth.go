package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/opium/internal/server"
	"github.com/desertthunder/opium/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginTimeout bounds how long the callback server waits for the browser.
const loginTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow.
//
// Starts a local HTTP server for the redirect, opens the browser for user authorization, and lets the
// callback exchange the code through the token manager.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.requireAuth()
	if err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, r.config.Credentials.Spotify.RedirectURI)
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(manager, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(oauthHandler)

	addr := r.config.Server.Addr()
	httpServer, serverErrors, err := server.Listen(addr, router)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Info("started OAuth callback server", "addr", addr, "path", redirect.Path)

	authURL := manager.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	var result server.OAuthResult
	wait := func(ctx context.Context) error {
		timeout := time.NewTimer(loginTimeout)
		defer timeout.Stop()

		select {
		case result = <-oauthHandler.Result():
			return nil
		case err, ok := <-serverErrors:
			if !ok {
				return fmt.Errorf("%w: callback server stopped", shared.ErrServiceUnavailable)
			}
			return fmt.Errorf("server error: %w", err)
		case <-timeout.C:
			return fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, loginTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := r.spin(ctx, "Waiting for authorization...", wait); err != nil {
		return err
	}
	if err := result.Error(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Session saved to %s\n\n", r.state.Path())
	r.writePlain("You can now use: opium browse categories\n")
	return nil
}

// AuthStatus reports whether a session is stored and when its access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.requireAuth()
	if err != nil {
		return err
	}

	status := manager.Status()
	r.logger.Debug("auth status", "state", status)

	if !manager.SignedIn() {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run: opium auth login\n")
	}

	expiresAt := manager.ExpiresAt()
	r.writePlain("✓ Signed in (%s)\n", status)
	if remaining := time.Until(expiresAt); remaining > 0 {
		return r.writePlain("Access token expires in %s (%s)\n", remaining.Round(time.Second), expiresAt.Local().Format(time.RFC1123))
	}
	return r.writePlain("Access token expired at %s; it is refreshed on the next request\n", expiresAt.Local().Format(time.RFC1123))
}

// AuthLogout discards the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.requireAuth()
	if err != nil {
		return err
	}

	if err := manager.SignOut(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}
