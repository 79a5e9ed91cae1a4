package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/harvmaster/GooglePhotosDownloader/internal/events"
	"golang.org/x/oauth2"
)

// multiRouteHandler implements [Handler] with more than one route
type multiRouteHandler struct {
	hits []string
}

func (h *multiRouteHandler) Routes() []string {
	return []string{"/first", "/second"}
}

func (h *multiRouteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hits = append(h.hits, r.URL.Path)
	w.WriteHeader(http.StatusOK)
}

func TestBasicRouter(t *testing.T) {
	t.Run("Handle Filters Methods", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for GET, got %d", rec.Code)
		}
		if rec.Body.String() != "pong" {
			t.Errorf("expected body 'pong', got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST, got %d", rec.Code)
		}
	})

	t.Run("Handler Registers All Routes", func(t *testing.T) {
		router := NewBasicRouter()
		handler := &multiRouteHandler{}
		router.Handler(handler)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/first", nil))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/second", nil))

		if len(handler.hits) != 2 {
			t.Fatalf("expected 2 handled requests, got %d", len(handler.hits))
		}
		if handler.hits[0] != "/first" || handler.hits[1] != "/second" {
			t.Errorf("expected both routes handled, got %v", handler.hits)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string

		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("outer"), tag("inner"))
		router.Handle(http.MethodGet, "/traced", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/traced", nil))

		want := []string{"outer", "inner", "handler"}
		if len(order) != len(want) {
			t.Fatalf("expected %d entries, got %v", len(want), order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("expected execution order %v, got %v", want, order)
				break
			}
		}
	})

	t.Run("LoggingMiddleware Passes Through", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(LoggingMiddleware(log.New(io.Discard)))
		router.Handle(http.MethodGet, "/logged", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "ok")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logged", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "ok" {
			t.Errorf("expected response to pass through middleware, got %q", rec.Body.String())
		}
	})
}

// newTestOAuthHandler wires a handler to a fake token endpoint and a capture
// of every EventAuthed emission.
func newTestOAuthHandler(t *testing.T, tokenStatus int) (*OAuthHandler, *[]AuthResult) {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"exchanged_access_token","token_type":"Bearer","refresh_token":"refresh123","expires_in":3600}`)
	}))
	t.Cleanup(tokenServer.Close)

	config := &oauth2.Config{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenServer.URL + "/auth",
			TokenURL: tokenServer.URL + "/token",
		},
		RedirectURL: "http://localhost:8080/oauth/callback",
	}

	bus := events.NewChannel[AuthResult](nil)
	results := &[]AuthResult{}
	bus.Subscribe(EventAuthed, func(r AuthResult) {
		*results = append(*results, r)
	})

	return NewOAuthHandler(config, "good_state", bus), results
}

func callbackRequest(query url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/oauth/callback?"+query.Encode(), nil)
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		handler, _ := newTestOAuthHandler(t, http.StatusOK)

		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/oauth/callback" {
			t.Errorf("expected single /oauth/callback route, got %v", routes)
		}
	})

	t.Run("Rejects Bad State", func(t *testing.T) {
		handler, results := newTestOAuthHandler(t, http.StatusOK)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(url.Values{"state": {"evil_state"}, "code": {"code123"}}))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if len(*results) != 1 {
			t.Fatalf("expected 1 emission, got %d", len(*results))
		}
		result := (*results)[0]
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "invalid state") {
			t.Errorf("expected invalid state error, got %v", result.Error())
		}
		if result.Token != nil {
			t.Error("expected no token on state mismatch")
		}
	})

	t.Run("Missing Code", func(t *testing.T) {
		handler, results := newTestOAuthHandler(t, http.StatusOK)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(url.Values{
			"state":             {"good_state"},
			"error":             {"access_denied"},
			"error_description": {"user declined"},
		}))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if len(*results) != 1 {
			t.Fatalf("expected 1 emission, got %d", len(*results))
		}
		err := (*results)[0].Error()
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected authorization failure with provider error, got %v", err)
		}
	})

	t.Run("Exchanges Code", func(t *testing.T) {
		handler, results := newTestOAuthHandler(t, http.StatusOK)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(url.Values{"state": {"good_state"}, "code": {"code123"}}))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page in response body")
		}

		if len(*results) != 1 {
			t.Fatalf("expected 1 emission, got %d", len(*results))
		}
		result := (*results)[0]
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token == nil || result.Token.AccessToken != "exchanged_access_token" {
			t.Errorf("expected exchanged token, got %+v", result.Token)
		}
		if result.Token.RefreshToken != "refresh123" {
			t.Errorf("expected refresh token carried through, got %s", result.Token.RefreshToken)
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		handler, results := newTestOAuthHandler(t, http.StatusInternalServerError)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(url.Values{"state": {"good_state"}, "code": {"code123"}}))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if len(*results) != 1 {
			t.Fatalf("expected 1 emission, got %d", len(*results))
		}
		err := (*results)[0].Error()
		if err == nil || !strings.Contains(err.Error(), "token exchange failed") {
			t.Errorf("expected exchange failure, got %v", err)
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		handler, results := newTestOAuthHandler(t, http.StatusOK)

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, callbackRequest(url.Values{"state": {"good_state"}, "code": {"code123"}}))
		if first.Code != http.StatusOK {
			t.Fatalf("expected first callback to succeed, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, callbackRequest(url.Values{"state": {"good_state"}, "code": {"code456"}}))
		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replayed callback, got %d", second.Code)
		}
		if !strings.Contains(second.Body.String(), "already processed") {
			t.Errorf("expected replay rejection message, got %q", second.Body.String())
		}

		if len(*results) != 1 {
			t.Errorf("expected exactly 1 emission after replay, got %d", len(*results))
		}
	})
}
