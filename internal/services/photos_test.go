package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	tu "github.com/harvmaster/GooglePhotosDownloader/internal/testing"
	"golang.org/x/oauth2"
)

func testDownloadItem(id string, isVideo bool) models.MediaItem {
	mimeType := "image/jpeg"
	if isVideo {
		mimeType = "video/mp4"
	}

	return models.MediaItem{
		ID:           id,
		Filename:     id + ".bin",
		MimeType:     mimeType,
		BaseURL:      "https://lh3.googleusercontent.com/" + id,
		IsVideo:      isVideo,
		CreationTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// roundTripFunc adapts a function to [http.RoundTripper] for request inspection
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// testPhotosService returns an authenticated service whose HTTP layer is the
// given transport, with the rate limiter opened up so tests stay fast.
func testPhotosService(t *testing.T, transport http.RoundTripper) *PhotosService {
	t.Helper()

	srv, err := NewPhotosService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.token = &oauth2.Token{AccessToken: "test_access_token"}
	srv.httpClient = &http.Client{Transport: transport}
	srv.SetRateLimit(1000)

	return srv
}

func TestPhotosService(t *testing.T) {
	t.Run("NewPhotosService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/cb",
			}

			srv, err := NewPhotosService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Google Photos" {
				t.Errorf("expected service name 'Google Photos', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewPhotosService(credentials)
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewPhotosService(credentials)
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewPhotosService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8080/oauth/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewPhotosService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if authURL == "" {
			t.Error("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "accounts.google.com") {
			t.Error("auth URL should contain Google domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "access_type=offline") {
			t.Error("auth URL should request offline access")
		}
		if !strings.Contains(authURL, "prompt=consent") {
			t.Error("auth URL should force the consent prompt")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewPhotosService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			authCreds := map[string]string{
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
				"expiry":        "2026-01-02T15:04:05Z",
			}

			err := srv.Authenticate(context.Background(), authCreds)
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.token == nil {
				t.Fatal("expected token to be set")
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.token.AccessToken)
			}

			if srv.token.RefreshToken != "test_refresh_token" {
				t.Errorf("expected refresh token to be carried, got %s", srv.token.RefreshToken)
			}

			want := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
			if !srv.token.Expiry.Equal(want) {
				t.Errorf("expected expiry %v, got %v", want, srv.token.Expiry)
			}
		})

		t.Run("Bad Expiry", func(t *testing.T) {
			authCreds := map[string]string{
				"access_token": "test_access_token",
				"expiry":       "yesterday",
			}

			err := srv.Authenticate(context.Background(), authCreds)
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			authCreds := map[string]string{}

			err := srv.Authenticate(context.Background(), authCreds)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewPhotosService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Service = srv
		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewPhotosService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// Callback set for testing
			})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})

		t.Run("callback can be replaced", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// First callback
			})

			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// Second callback
			})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			callbackCalled := false
			var capturedToken *oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callbackCalled = true
					capturedToken = token
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !callbackCalled {
				t.Error("expected callback to be called on first fetch")
			}
			if capturedToken == nil {
				t.Error("expected token to be captured")
			}
			if capturedToken.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %s", capturedToken.AccessToken)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			var capturedTokens []*oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "token1"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
					capturedTokens = append(capturedTokens, token)
				},
			}

			_, _ = source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if len(capturedTokens) != 2 {
				t.Errorf("expected 2 captured tokens, got %d", len(capturedTokens))
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "same_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: nil,
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			mockSource := &mockTokenSource{
				err: errors.New("token source error"),
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil {
				t.Fatal("expected error from source")
			}
			if !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("handles callback panic gracefully", func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Error("expected panic to be contained within callback")
				}
			}()

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					panic("callback panic")
				},
			}

			func() {
				defer func() {
					_ = recover()
				}()
				source.Token()
			}()
		})
	})
}

func TestPhotosServiceRequests(t *testing.T) {
	t.Run("Albums", func(t *testing.T) {
		var gotPath, gotQuery string

		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotPath = req.URL.Path
			gotQuery = req.URL.RawQuery

			if req.Header.Get("Authorization") != "Bearer test_access_token" {
				t.Errorf("expected bearer auth, got %s", req.Header.Get("Authorization"))
			}

			return jsonResponse(http.StatusOK, `{
				"albums": [
					{"id": "album1", "title": "Summer 2024", "mediaItemsCount": "250", "coverPhotoBaseUrl": "https://lh3.googleusercontent.com/cover"},
					{"id": "album2", "title": "Winter 2024", "mediaItemsCount": "31"}
				],
				"nextPageToken": "page2"
			}`), nil
		}))

		response, err := srv.Albums(context.Background(), 50, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotPath != "/v1/albums" {
			t.Errorf("expected path /v1/albums, got %s", gotPath)
		}
		if !strings.Contains(gotQuery, "pageSize=50") {
			t.Errorf("expected pageSize=50 in query, got %s", gotQuery)
		}

		if len(response.Albums) != 2 {
			t.Fatalf("expected 2 albums, got %d", len(response.Albums))
		}
		if response.Albums[0].MediaItemsCount != "250" {
			t.Errorf("expected mediaItemsCount '250', got %s", response.Albums[0].MediaItemsCount)
		}
		if response.NextPageToken != "page2" {
			t.Errorf("expected next page token 'page2', got %s", response.NextPageToken)
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, err := NewPhotosService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		_, err = srv.Albums(context.Background(), 50, "")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Token Expired", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{}`), nil
		}))

		_, err := srv.Albums(context.Background(), 50, "")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Service Unavailable", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{}`), nil
		}))

		_, err := srv.Albums(context.Background(), 50, "")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("API Error", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadRequest, `{}`), nil
		}))

		_, err := srv.Albums(context.Background(), 50, "")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		srv := testPhotosService(t, tu.NewMockRoundTripper(nil, errors.New("connection failed")))

		_, err := srv.Albums(context.Background(), 50, "")
		if err == nil {
			t.Fatal("expected error for failed request")
		}
		if !strings.Contains(err.Error(), "request failed") {
			t.Errorf("expected 'request failed' error, got %v", err)
		}
	})

	t.Run("SearchMediaItems", func(t *testing.T) {
		var gotMethod string
		var gotBody searchRequest

		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotMethod = req.Method
			if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}

			return jsonResponse(http.StatusOK, `{
				"mediaItems": [
					{"id": "media1", "filename": "IMG_0001.jpg", "mimeType": "image/jpeg", "baseUrl": "https://lh3.googleusercontent.com/m1",
					 "mediaMetadata": {"creationTime": "2024-06-01T12:00:00Z", "width": "4032", "height": "3024", "photo": {}}}
				],
				"nextPageToken": "page2"
			}`), nil
		}))

		response, err := srv.SearchMediaItems(context.Background(), "album1", 100, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotMethod != http.MethodPost {
			t.Errorf("expected POST, got %s", gotMethod)
		}
		if gotBody.AlbumID != "album1" {
			t.Errorf("expected albumId 'album1' in body, got %s", gotBody.AlbumID)
		}
		if gotBody.PageSize != 100 {
			t.Errorf("expected pageSize 100 in body, got %d", gotBody.PageSize)
		}

		if len(response.MediaItems) != 1 {
			t.Fatalf("expected 1 media item, got %d", len(response.MediaItems))
		}
		if response.NextPageToken != "page2" {
			t.Errorf("expected next page token 'page2', got %s", response.NextPageToken)
		}
	})

	t.Run("SearchMediaItems Missing Album", func(t *testing.T) {
		srv := testPhotosService(t, tu.NewMockRoundTripper(nil, errors.New("should not be called")))

		_, err := srv.SearchMediaItems(context.Background(), "", 100, "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("GetAlbums Paginates", func(t *testing.T) {
		calls := 0

		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return jsonResponse(http.StatusOK, `{
					"albums": [{"id": "album1", "title": "One", "mediaItemsCount": "10"}, {"id": "album2", "title": "Two", "mediaItemsCount": "20"}],
					"nextPageToken": "page2"
				}`), nil
			}

			if !strings.Contains(req.URL.RawQuery, "pageToken=page2") {
				t.Errorf("expected pageToken=page2 on second request, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{
				"albums": [{"id": "album3", "title": "Three", "mediaItemsCount": "30"}]
			}`), nil
		}))

		albums, err := srv.GetAlbums(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if calls != 2 {
			t.Errorf("expected 2 requests, got %d", calls)
		}
		if len(albums) != 3 {
			t.Fatalf("expected 3 albums, got %d", len(albums))
		}
		if albums[1].ItemCount != 20 {
			t.Errorf("expected item count 20, got %d", albums[1].ItemCount)
		}
	})

	t.Run("GetAlbum Not Found", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}))

		_, err := srv.GetAlbum(context.Background(), "missing")
		if !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})

	t.Run("ListLibrary Converts Items", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/mediaItems" {
				t.Errorf("expected path /v1/mediaItems, got %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{
				"mediaItems": [
					{"id": "photo1", "filename": "IMG_0001.jpg", "mimeType": "image/jpeg", "baseUrl": "https://lh3.googleusercontent.com/p1",
					 "mediaMetadata": {"creationTime": "2024-06-01T12:00:00Z", "width": "4032", "height": "3024", "photo": {}}},
					{"id": "video1", "filename": "VID_0002.mp4", "mimeType": "video/mp4", "baseUrl": "https://lh3.googleusercontent.com/v1",
					 "mediaMetadata": {"creationTime": "2024-06-02T08:30:00Z", "width": "1920", "height": "1080", "video": {"fps": 30, "status": "READY"}}}
				]
			}`), nil
		}))

		page, err := srv.ListLibrary(context.Background(), 100, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(page.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(page.Items))
		}
		if page.NextPageToken != "" {
			t.Errorf("expected empty next page token, got %s", page.NextPageToken)
		}

		photo := page.Items[0]
		if photo.Width != 4032 || photo.Height != 3024 {
			t.Errorf("expected 4032x3024, got %dx%d", photo.Width, photo.Height)
		}
		if photo.IsVideo {
			t.Error("photo should not be flagged as video")
		}
		want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		if !photo.CreationTime.Equal(want) {
			t.Errorf("expected creation time %v, got %v", want, photo.CreationTime)
		}

		video := page.Items[1]
		if !video.IsVideo {
			t.Error("video should be flagged as video")
		}
		if video.DownloadURL() != "https://lh3.googleusercontent.com/v1=dv" {
			t.Errorf("expected video download suffix, got %s", video.DownloadURL())
		}
	})
}

func TestPhotosServiceDownload(t *testing.T) {
	t.Run("Streams Original Bytes", func(t *testing.T) {
		var gotURL string

		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotURL = req.URL.String()
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader("image bytes")),
			}, nil
		}))

		item := testDownloadItem("photo1", false)

		var buf bytes.Buffer
		written, err := srv.Download(context.Background(), item, &buf)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotURL != "https://lh3.googleusercontent.com/photo1=d" {
			t.Errorf("expected original-quality photo URL, got %s", gotURL)
		}
		if written != int64(len("image bytes")) {
			t.Errorf("expected %d bytes written, got %d", len("image bytes"), written)
		}
		if buf.String() != "image bytes" {
			t.Errorf("expected body to be streamed, got %q", buf.String())
		}
	})

	t.Run("Video Suffix", func(t *testing.T) {
		var gotURL string

		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotURL = req.URL.String()
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader("video bytes")),
			}, nil
		}))

		item := testDownloadItem("video1", true)

		var buf bytes.Buffer
		if _, err := srv.Download(context.Background(), item, &buf); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotURL != "https://lh3.googleusercontent.com/video1=dv" {
			t.Errorf("expected original-quality video URL, got %s", gotURL)
		}
	})

	t.Run("Missing Base URL", func(t *testing.T) {
		srv := testPhotosService(t, tu.NewMockRoundTripper(nil, errors.New("should not be called")))

		item := testDownloadItem("photo1", false)
		item.BaseURL = ""

		var buf bytes.Buffer
		_, err := srv.Download(context.Background(), item, &buf)
		if !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
	})

	t.Run("Stale Base URL", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusForbidden, `{}`), nil
		}))

		item := testDownloadItem("photo1", false)

		var buf bytes.Buffer
		_, err := srv.Download(context.Background(), item, &buf)
		if !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
	})

	t.Run("Server Error Is Retryable", func(t *testing.T) {
		srv := testPhotosService(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `{}`), nil
		}))

		item := testDownloadItem("photo1", false)

		var buf bytes.Buffer
		_, err := srv.Download(context.Background(), item, &buf)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if errors.Is(err, shared.ErrDownloadFailed) {
			t.Error("server errors should not be flagged as permanent download failures")
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, err := NewPhotosService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var buf bytes.Buffer
		_, err = srv.Download(context.Background(), testDownloadItem("photo1", false), &buf)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
