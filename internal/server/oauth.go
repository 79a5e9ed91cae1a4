package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/harvmaster/GooglePhotosDownloader/internal/events"
	"golang.org/x/oauth2"
)

// EventAuthed is emitted on the auth event channel when the OAuth callback
// resolves, successfully or not.
const EventAuthed = "authed"

// AuthResult contains the result of an OAuth authorization flow.
type AuthResult struct {
	Token *oauth2.Token
	err   error
}

func (a AuthResult) Error() error {
	return a.err
}

// AuthFailure wraps an error as a failed AuthResult so callers outside the
// package can publish it on the auth event channel, e.g. when the callback
// server itself fails to start.
func AuthFailure(err error) AuthResult {
	return AuthResult{err: err}
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
//
// The outcome is published as a single [EventAuthed] emission on the auth
// event channel, where the login command waits for it.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	bus         *events.Channel[AuthResult]
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler with the given OAuth2 config, state token,
// and auth event channel. The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(config *oauth2.Config, state string, bus *events.Channel[AuthResult]) *OAuthHandler {
	return &OAuthHandler{
		config: config,
		state:  state,
		bus:    bus,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/oauth/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates the state parameter, exchanges the authorization code for tokens,
// and publishes the result on the auth event channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.publish(AuthResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.publish(AuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.publish(AuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.publish(AuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #4285F4; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// publish emits the auth result on the event channel (only once).
func (h *OAuthHandler) publish(result AuthResult) {
	h.once.Do(func() {
		h.bus.Emit(EventAuthed, result)
	})
}
