// Google Photos implementation of [Service]
//
// Library API response types based on https://developers.google.com/photos/library/reference/rest
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	photosBaseURL  = "https://photoslibrary.googleapis.com/v1"
	photosScope    = "https://www.googleapis.com/auth/photoslibrary.readonly"
)

// Listing page size caps imposed by the Library API.
const (
	maxAlbumPageSize = 50
	maxMediaPageSize = 100
)

type photoMetadata struct {
	CameraMake  string `json:"cameraMake"`
	CameraModel string `json:"cameraModel"`
}

type videoMetadata struct {
	FPS    float64 `json:"fps"`
	Status string  `json:"status"` // READY once the video is processed
}

// MediaMetadata carries capture time and dimensions for a media item.
// Width and height arrive as decimal strings.
type MediaMetadata struct {
	CreationTime string         `json:"creationTime"`
	Width        string         `json:"width"`
	Height       string         `json:"height"`
	Photo        *photoMetadata `json:"photo,omitempty"`
	Video        *videoMetadata `json:"video,omitempty"`
}

// PhotosMediaItem represents a media item resource from the Library API.
type PhotosMediaItem struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	ProductURL    string        `json:"productUrl"`
	BaseURL       string        `json:"baseUrl"`
	MimeType      string        `json:"mimeType"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
	Filename      string        `json:"filename"`
}

// PhotosAlbum represents an album resource from the Library API.
// MediaItemsCount arrives as a decimal string.
type PhotosAlbum struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	ProductURL            string `json:"productUrl"`
	MediaItemsCount       string `json:"mediaItemsCount"`
	CoverPhotoBaseURL     string `json:"coverPhotoBaseUrl"`
	CoverPhotoMediaItemID string `json:"coverPhotoMediaItemId"`
}

// PaginatedAlbums represents a paginated album listing response.
type PaginatedAlbums struct {
	Albums        []PhotosAlbum `json:"albums"`
	NextPageToken string        `json:"nextPageToken"`
}

// PaginatedMediaItems represents a paginated media item listing response.
type PaginatedMediaItems struct {
	MediaItems    []PhotosMediaItem `json:"mediaItems"`
	NextPageToken string            `json:"nextPageToken"`
}

type searchRequest struct {
	AlbumID   string `json:"albumId"`
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
}

// PhotosService implements the Service interface for Google Photos Library API interactions.
// Uses [oauth2] for authentication and rate-limits every API call.
type PhotosService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	limiter        *rate.Limiter
	onTokenRefresh func(token *oauth2.Token)
}

// NewPhotosService creates a new Google Photos service with the given OAuth2 credentials.
func NewPhotosService(credentials map[string]string) (*PhotosService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/oauth/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{photosScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}

	return &PhotosService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5.0), 1),
	}, nil
}

// SetRateLimit adjusts the API request budget in requests per second.
// Non-positive values keep the default.
func (s *PhotosService) SetRateLimit(rps float64) {
	if rps <= 0 {
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetTokenRefreshCallback registers a function invoked whenever the underlying
// token source produces a new access token, so refreshed tokens can be saved.
func (s *PhotosService) SetTokenRefreshCallback(fn func(token *oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate performs OAuth2 authentication with Google. Expects either an
// "access_token" (with optional "refresh_token" and "expiry") or an "auth_code"
// in credentials.
func (s *PhotosService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
		}
		if expiry, ok := credentials["expiry"]; ok && expiry != "" {
			parsed, err := time.Parse(time.RFC3339, expiry)
			if err != nil {
				return fmt.Errorf("%w: bad token expiry: %v", shared.ErrInvalidCredentials, err)
			}
			token.Expiry = parsed
		}
		s.setToken(ctx, token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.setToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// setToken installs the token and rebuilds the HTTP client so transparent
// refreshes flow through the registered callback.
func (s *PhotosService) setToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	source := &refreshableTokenSource{
		source: s.config.TokenSource(ctx, token),
		callback: func(refreshed *oauth2.Token) {
			s.token = refreshed
			if s.onTokenRefresh != nil {
				s.onTokenRefresh(refreshed)
			}
		},
	}
	s.httpClient = oauth2.NewClient(ctx, source)
}

func (s *PhotosService) Name() string {
	return "Google Photos"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
// Offline access plus the consent prompt makes Google include a refresh token.
func (s *PhotosService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// GetOAuthConfig returns the OAuth2 configuration backing this service.
func (s *PhotosService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the access token it hands out changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(token *oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token: %w", err)
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	if changed {
		r.last = token.AccessToken
	}
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}

	return token, nil
}

// doRequest performs a rate-limited, authenticated HTTP request to the Library API.
func (s *PhotosService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	apiURL := photosBaseURL + endpoint

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Albums retrieves one page of the user's albums (up to 50 per page).
func (s *PhotosService) Albums(ctx context.Context, pageSize int, pageToken string) (*PaginatedAlbums, error) {
	if pageSize <= 0 || pageSize > maxAlbumPageSize {
		pageSize = maxAlbumPageSize
	}

	endpoint := fmt.Sprintf("/albums?pageSize=%d", pageSize)
	if pageToken != "" {
		endpoint += "&pageToken=" + pageToken
	}

	var response PaginatedAlbums
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Album retrieves a single album by ID.
func (s *PhotosService) Album(ctx context.Context, albumID string) (*PhotosAlbum, error) {
	var album PhotosAlbum
	endpoint := fmt.Sprintf("/albums/%s", albumID)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &album); err != nil {
		if strings.Contains(err.Error(), "status 404") {
			return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
		}
		return nil, err
	}
	return &album, nil
}

// MediaItems retrieves one page of the user's library (up to 100 per page).
func (s *PhotosService) MediaItems(ctx context.Context, pageSize int, pageToken string) (*PaginatedMediaItems, error) {
	if pageSize <= 0 || pageSize > maxMediaPageSize {
		pageSize = maxMediaPageSize
	}

	endpoint := fmt.Sprintf("/mediaItems?pageSize=%d", pageSize)
	if pageToken != "" {
		endpoint += "&pageToken=" + pageToken
	}

	var response PaginatedMediaItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// SearchMediaItems retrieves one page of an album's contents (up to 100 per page).
func (s *PhotosService) SearchMediaItems(ctx context.Context, albumID string, pageSize int, pageToken string) (*PaginatedMediaItems, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album ID is required", shared.ErrMissingArgument)
	}
	if pageSize <= 0 || pageSize > maxMediaPageSize {
		pageSize = maxMediaPageSize
	}

	body := searchRequest{
		AlbumID:   albumID,
		PageSize:  pageSize,
		PageToken: pageToken,
	}

	var response PaginatedMediaItems
	if err := s.doRequest(ctx, http.MethodPost, "/mediaItems:search", body, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Service interface implementation

// GetAlbums retrieves all albums for the authenticated user.
func (s *PhotosService) GetAlbums(ctx context.Context) ([]models.Album, error) {
	var allAlbums []models.Album
	pageToken := ""

	for {
		response, err := s.Albums(ctx, maxAlbumPageSize, pageToken)
		if err != nil {
			return nil, err
		}

		for _, album := range response.Albums {
			allAlbums = append(allAlbums, album.toModel())
		}

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	return allAlbums, nil
}

// GetAlbum retrieves a specific album by ID.
func (s *PhotosService) GetAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	album, err := s.Album(ctx, albumID)
	if err != nil {
		return nil, err
	}

	dto := album.toModel()
	return &dto, nil
}

// ListLibrary retrieves one page of the user's library.
func (s *PhotosService) ListLibrary(ctx context.Context, pageSize int, pageToken string) (*models.MediaPage, error) {
	response, err := s.MediaItems(ctx, pageSize, pageToken)
	if err != nil {
		return nil, err
	}

	return response.toPage(), nil
}

// ListAlbumMedia retrieves one page of an album's contents.
func (s *PhotosService) ListAlbumMedia(ctx context.Context, albumID string, pageSize int, pageToken string) (*models.MediaPage, error) {
	response, err := s.SearchMediaItems(ctx, albumID, pageSize, pageToken)
	if err != nil {
		return nil, err
	}

	return response.toPage(), nil
}

// Download streams the original-quality bytes for a media item into w.
//
// Base URLs are short-lived; a stale one surfaces as ErrDownloadFailed and the
// item needs re-indexing for a fresh URL. Rate limiting and server errors
// surface as ErrServiceUnavailable instead, so callers can retry those.
func (s *PhotosService) Download(ctx context.Context, item models.MediaItem, w io.Writer) (int64, error) {
	if s.token == nil {
		return 0, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	downloadURL := item.DownloadURL()
	if downloadURL == "" {
		return 0, fmt.Errorf("%w: no base URL for %s", shared.ErrDownloadFailed, item.ID)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return 0, fmt.Errorf("%w: status %d for %s", shared.ErrServiceUnavailable, resp.StatusCode, item.ID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: status %d for %s", shared.ErrDownloadFailed, resp.StatusCode, item.ID)
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("download stream interrupted: %w", err)
	}

	return written, nil
}

// toModel converts a Library API album resource to the domain DTO.
func (a PhotosAlbum) toModel() models.Album {
	count, _ := strconv.ParseInt(a.MediaItemsCount, 10, 64)
	return models.Album{
		ID:        a.ID,
		Title:     a.Title,
		ItemCount: count,
		CoverURL:  a.CoverPhotoBaseURL,
	}
}

// toModel converts a Library API media item resource to the domain DTO.
func (m PhotosMediaItem) toModel() models.MediaItem {
	width, _ := strconv.ParseInt(m.MediaMetadata.Width, 10, 64)
	height, _ := strconv.ParseInt(m.MediaMetadata.Height, 10, 64)

	item := models.MediaItem{
		ID:          m.ID,
		Filename:    m.Filename,
		MimeType:    m.MimeType,
		BaseURL:     m.BaseURL,
		ProductURL:  m.ProductURL,
		Description: m.Description,
		Width:       width,
		Height:      height,
		IsVideo:     m.MediaMetadata.Video != nil || strings.HasPrefix(m.MimeType, "video/"),
	}

	if m.MediaMetadata.CreationTime != "" {
		if created, err := time.Parse(time.RFC3339, m.MediaMetadata.CreationTime); err == nil {
			item.CreationTime = created
		}
	}

	return item
}

func (p *PaginatedMediaItems) toPage() *models.MediaPage {
	page := &models.MediaPage{NextPageToken: p.NextPageToken}
	for _, item := range p.MediaItems {
		page.Items = append(page.Items, item.toModel())
	}
	return page
}
