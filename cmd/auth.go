package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/server"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthStatusReport is the JSON form of 'auth status'.
type AuthStatusReport struct {
	ClientID      bool            `json:"client_id_configured"`
	TokenCached   bool            `json:"token_cached"`
	Expiry        *time.Time      `json:"expiry,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Profile       *models.Profile `json:"profile,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// AuthLogin performs the OAuth2 authorization code flow with PKCE.
//
// Starts a local HTTP server on the redirect URI's address, opens the browser for user authorization and saves the
// exchanged tokens to the config file. A missing client ID is prompted for and saved along with the tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := &r.config.Credentials.Spotify
	if !creds.HasClientID() {
		clientID, err := r.prompter.ClientID()
		if err != nil {
			return err
		}
		creds.ClientID = clientID
	}

	srv, err := r.newSpotifyService()
	if err != nil {
		return err
	}

	addr, err := callbackAddr(srv.OAuthConfig().RedirectURL, r.config.Server)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	exchange := func(ctx context.Context, code string) (*oauth2.Token, error) {
		return srv.Exchange(ctx, code, verifier)
	}
	callback, err := server.NewCallbackServer(addr, state, exchange, r.logger)
	if err != nil {
		return err
	}
	callback.Start()
	defer func() {
		if err := callback.Shutdown(); err != nil {
			r.logger.Warn("failed to stop callback server", "error", err)
		}
	}()

	authURL := srv.AuthURL(state, verifier)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize savedl:\n\n%s\n\n", authURL)
	} else {
		r.writePlain("Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
			r.writePlain("Open this URL manually:\n\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}
	r.logger.Debug("waiting for authorization", "addr", callback.Addr(), "timeout", timeout)

	token, err := callback.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}
	r.library = srv

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n", r.configPath)

	if profile, err := srv.UserProfile(ctx); err != nil {
		r.logger.Warn("failed to fetch profile", "error", err)
	} else {
		r.writePlain("Logged in as %s (%s)\n", orDefault(profile.DisplayName, profile.ID), profile.ID)
	}

	r.writePlain("\nYou can now use: savedl download liked\n")
	return nil
}

// AuthLogout removes the cached tokens. The client ID is kept.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	creds := &r.config.Credentials.Spotify
	if creds.Token() == nil {
		return r.writePlain("Not logged in\n")
	}

	creds.ClearToken()
	if err := shared.SaveConfig(r.config, r.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.library = nil

	r.logger.Info("cached tokens removed", "path", r.configPath)
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the cached credentials and, when a token is cached, verifies it against the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	report := AuthStatusReport{ClientID: creds.HasClientID()}

	if token := creds.Token(); token != nil {
		report.TokenCached = true
		if !token.Expiry.IsZero() {
			expiry := token.Expiry
			report.Expiry = &expiry
		}

		if library, err := r.spotify(); err != nil {
			report.Error = err.Error()
		} else if profile, err := library.UserProfile(ctx); err != nil {
			report.Error = err.Error()
		} else {
			report.Authenticated = true
			report.Profile = profile
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	r.writePlain("%s Client ID configured\n", mark(report.ClientID))
	r.writePlain("%s Token cached\n", mark(report.TokenCached))
	if report.Expiry != nil {
		r.writePlain("  Expires: %s\n", report.Expiry.Format(time.RFC3339))
	}
	r.writePlain("%s Authenticated\n", mark(report.Authenticated))
	if report.Profile != nil {
		r.writePlain("  User: %s (%s)\n", orDefault(report.Profile.DisplayName, report.Profile.ID), report.Profile.ID)
	}
	if report.Error != "" {
		r.writePlain("  Error: %s\n", report.Error)
	}
	if !report.TokenCached {
		r.writePlain("\nRun 'savedl auth login' to authorize.\n")
	}
	return nil
}

// callbackAddr derives the listen address from the redirect URI, falling back to the [server] config for the port.
func callbackAddr(redirectURI string, fallback shared.ServerConfig) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = fmt.Sprint(fallback.Port)
	}
	if host == "" {
		host = fallback.Host
	}
	return net.JoinHostPort(host, port), nil
}
