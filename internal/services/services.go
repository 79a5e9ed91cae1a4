// package services defines interface Service for interacting with photo library APIs
package services

import (
	"context"
	"io"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the interface for photo library providers that can list albums and media and serve original-quality bytes.
type Service interface {
	// Authenticate performs OAuth authentication with the provider.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetAlbums retrieves all albums for the authenticated user.
	GetAlbums(ctx context.Context) ([]models.Album, error)

	// GetAlbum retrieves a specific album by ID.
	GetAlbum(ctx context.Context, albumID string) (*models.Album, error)

	// ListLibrary retrieves one page of the user's library.
	// An empty page token requests the first page.
	ListLibrary(ctx context.Context, pageSize int, pageToken string) (*models.MediaPage, error)

	// ListAlbumMedia retrieves one page of an album's contents.
	ListAlbumMedia(ctx context.Context, albumID string, pageSize int, pageToken string) (*models.MediaPage, error)

	// Download streams the original-quality bytes for a media item into w.
	// Returns the number of bytes written.
	Download(ctx context.Context, item models.MediaItem, w io.Writer) (int64, error)

	// Name returns the name of the provider (e.g., "Google Photos")
	Name() string
}

// OAuthService extends Service for providers using browser-based OAuth flows.
type OAuthService interface {
	Service

	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the provider's OAuth2 configuration, used by the
	// callback server to exchange the authorization code.
	GetOAuthConfig() *oauth2.Config

	// SetTokenRefreshCallback registers a function invoked whenever the
	// provider transparently refreshes the access token, so callers can
	// persist the new token.
	SetTokenRefreshCallback(fn func(token *oauth2.Token))
}
