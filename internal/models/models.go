// package models defines the data model for the photo library downloader
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the downloader.
// Implementations include PersistedMedia and PersistedAlbum.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// MediaItem represents a photo or video as returned by the library API.
//
// BaseURL is short-lived (roughly an hour); append "=d" for original-quality
// photo bytes or "=dv" for video bytes when downloading.
type MediaItem struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	BaseURL      string    `json:"base_url"`
	ProductURL   string    `json:"product_url"`
	Description  string    `json:"description,omitempty"`
	Width        int64     `json:"width"`
	Height       int64     `json:"height"`
	IsVideo      bool      `json:"is_video"`
	CreationTime time.Time `json:"creation_time"`
}

// DownloadURL returns the base URL with the suffix selecting original-quality
// bytes for the media kind.
func (m MediaItem) DownloadURL() string {
	if m.BaseURL == "" {
		return ""
	}
	if m.IsVideo {
		return m.BaseURL + "=dv"
	}
	return m.BaseURL + "=d"
}

// Kind returns "video" or "photo" for display and export columns.
func (m MediaItem) Kind() string {
	if m.IsVideo {
		return "video"
	}
	return "photo"
}

// MediaPage is one page of media items plus the token for the next page.
// An empty NextPageToken means the listing is exhausted.
type MediaPage struct {
	Items         []MediaItem `json:"items"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// Album represents basic album metadata from the library API.
type Album struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ItemCount int64  `json:"item_count"`
	CoverURL  string `json:"cover_url,omitempty"`
}

// AlbumExport bundles an album with its full media listing for export.
type AlbumExport struct {
	Album Album       `json:"album"`
	Items []MediaItem `json:"items"`
}
