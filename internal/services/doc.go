// Package services defines the [Service] interface for photo library providers and implements it for Google Photos.
//
// # Service Interface
//
// The provider abstraction covers album listing, paginated media listing, and original-quality downloads, so engines and commands never touch provider JSON.
//
// # Google Photos Implementation
//
// [PhotosService] talks to the Library API (photoslibrary.googleapis.com/v1) and uses OAuth2 with automatic token refresh.
//
// The [oauth2] client refreshes expired access tokens using the stored refresh token; a refresh callback set via [PhotosService.SetTokenRefreshCallback] lets callers persist the new token. Every API call passes through a [rate.Limiter] so bulk indexing stays inside the per-user quota.
//
// Listing endpoints are page-oriented (pageSize/pageToken); [PhotosService.ListLibrary] and [PhotosService.ListAlbumMedia] surface single pages so callers can schedule page fetches independently. Downloads append the "=d" (photo) or "=dv" (video) suffix to the short-lived base URL for original-quality bytes.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Service for browser-based OAuth flows.
//
// [PhotosService] implements it for the login flow used by the CLI.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token rejected, reauthorization needed
//   - [shared.ErrServiceUnavailable] : quota exhausted or server-side failure
//   - [shared.ErrAPIRequest] : any other failed HTTP request
//   - [shared.ErrAlbumNotFound] : album ID not found
//   - [shared.ErrDownloadFailed] : byte fetch failed (often a stale base URL)
//
// # API Mappings
//
// Provider JSON converts to domain DTOs at the package boundary:
//   - [PhotosAlbum] → [models.Album] (mediaItemsCount parsed from its string form)
//   - [PhotosMediaItem] → [models.MediaItem] (dimensions parsed, video flag from metadata or MIME type)
package services
