package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/events"
	"github.com/harvmaster/GooglePhotosDownloader/internal/server"
	"github.com/harvmaster/GooglePhotosDownloader/internal/services"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout bounds how long login waits for the user to finish the browser
// consent flow.
const authTimeout = 5 * time.Minute

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Google Photos authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize access to your Google Photos library via the browser",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the saved credential and token state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin performs the OAuth2 authorization flow for Google Photos.
//
// Starts a local callback server, opens the browser for consent, waits for
// the callback result on the auth event channel, and persists the issued
// tokens to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureService(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %v\n\n", r.configPath)
	r.writePlain("You can now run: gpdl sync\n")
	return nil
}

// AuthStatus reports the saved credential state without calling the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		r.writePlain("✗ Client credentials missing\n")
		r.writePlain("Set credentials.google.client_id and client_secret in %v\n", r.configPath)
		return nil
	}
	r.writePlain("✓ Client credentials configured\n")

	token, err := google.Token()
	if err != nil {
		r.writePlain("✗ Not authenticated. Run: gpdl auth login\n")
		return nil
	}

	r.writePlain("✓ Access token saved\n")
	if google.RefreshToken != "" {
		r.writePlain("✓ Refresh token saved\n")
	} else {
		r.writePlain("⚠ No refresh token. Re-run 'gpdl auth login' when access expires\n")
	}

	if !token.Expiry.IsZero() {
		if token.Expiry.Before(time.Now()) {
			r.writePlain("⚠ Access token expired %v ago (refreshes on next use)\n", shared.FormatDuration(time.Since(token.Expiry)))
		} else {
			r.writePlain("  Access token expires in %v\n", shared.FormatDuration(time.Until(token.Expiry)))
		}
	}
	return nil
}

// ensureService constructs the Google Photos service from the active config
// when the runner does not have one yet.
func (r *Runner) ensureService() error {
	if r.service != nil {
		return nil
	}

	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		return fmt.Errorf("%w: Google client_id and client_secret must be set in %v", shared.ErrMissingCredentials, r.configPath)
	}

	service, err := services.NewPhotosService(googleCredentials(r.config))
	if err != nil {
		return fmt.Errorf("failed to create Google Photos service: %w", err)
	}
	if r.config.Downloader.RateLimit > 0 {
		service.SetRateLimit(r.config.Downloader.RateLimit)
	}

	r.service = service
	return nil
}

// authenticate installs the saved token on the media service and registers a
// refresh callback so silently refreshed tokens are written back to the
// config file.
func (r *Runner) authenticate(ctx context.Context) error {
	if err := r.ensureService(); err != nil {
		return err
	}

	token, err := r.config.Credentials.Google.Token()
	if err != nil {
		return err
	}

	credentials := map[string]string{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		credentials["expiry"] = token.Expiry.Format(time.RFC3339)
	}

	if err := r.service.Authenticate(ctx, credentials); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.service.SetTokenRefreshCallback(func(refreshed *oauth2.Token) {
		if err := r.saveTokens(refreshed); err != nil {
			r.logger.Warnf("failed to persist refreshed token %v", err)
		}
	})

	return nil
}

// saveTokens stores an issued token on the config and persists it when a
// config path is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if token == nil {
		return fmt.Errorf("failed to update google configuration: %w: token cannot be nil", shared.ErrInvalidArgument)
	}

	r.config.Credentials.Google.Update(token)

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.config, r.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// doOAuth executes the browser authorization flow against a local callback
// server. The callback handler publishes its outcome on an auth event
// channel; this blocks on that event with a timeout. The prefix names the
// flow in user-facing output ("authorization" or "reauthorization").
func (r *Runner) doOAuth(ctx context.Context, prefix string) (*oauth2.Token, error) {
	state := shared.GenerateState()
	authURL := r.service.GetAuthURL(state)

	bus := events.NewChannel[server.AuthResult](r.logger)
	router := server.NewBasicRouter()
	router.Handler(server.NewOAuthHandler(r.service.GetOAuthConfig(), state, bus))

	addr := fmt.Sprintf("%v:%v", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		r.logger.Infof("starting %v callback server at %v", prefix, addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Surface listener failures through the same event the callback
			// publishes, so the wait below returns immediately.
			bus.Emit(server.EventAuthed, server.AuthFailure(fmt.Errorf("callback server error: %w", err)))
		}
	}()

	r.writePlain("→ Opening browser for Google %v...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("⚠ Could not open browser. Visit this URL to continue:\n\n%v\n\n", authURL)
	}
	r.writePlain("→ Waiting for %v (%v timeout)...\n", prefix, authTimeout)

	result, waitErr := bus.WaitFor(ctx, server.EventAuthed, func(server.AuthResult) bool { return true }, authTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warnf("error shutting down callback server %v", err)
	}

	if waitErr != nil {
		if errors.Is(waitErr, events.ErrWaitTimeout) {
			return nil, fmt.Errorf("%w: no callback received within %v", shared.ErrTimeout, authTimeout)
		}
		return nil, waitErr
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// handleAuthError restarts the authorization flow when the API reports an
// expired token that refresh could not fix. Reports whether the caller
// should retry its operation.
func (r *Runner) handleAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil || !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	r.writePlainln("⚠ Access token expired. Starting reauthorization...")

	token, oauthErr := r.doOAuth(ctx, "reauthorization")
	if oauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", oauthErr)
	}
	if saveErr := r.saveTokens(token); saveErr != nil {
		return true, saveErr
	}
	if authErr := r.authenticate(ctx); authErr != nil {
		return true, fmt.Errorf("failed to authenticate with new tokens: %w", authErr)
	}

	r.writePlainln("✓ Reauthorized. Retrying...")
	return true, nil
}

// configFlag is the --config flag carried by every command that reads or
// writes the config file.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}
