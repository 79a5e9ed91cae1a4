package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
)

// MediaRepository implements models.Repository[*models.PersistedMedia] for indexed media items.
//
// Handles media item persistence with soft delete support and library-ID lookups.
// Items are recorded once per library media ID; re-indexing refreshes metadata and
// the short-lived base URL without touching download state.
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new MediaRepository with the given database connection
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts a new [models.PersistedMedia] into the database with generated ID and sequence
func (r *MediaRepository) Create(item *models.PersistedMedia) error {
	sequence, err := NextSequence(r.db, "media_items")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	item.SetID(id)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO media_items (
			id, sequence, media_id, album_id, filename, mime_type,
			base_url, product_url, description, width, height, is_video,
			creation_time, local_path, downloaded_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	media := item.Media()

	var creationTime any = media.CreationTime
	if media.CreationTime.IsZero() {
		creationTime = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		media.ID,
		item.AlbumID(),
		media.Filename,
		media.MimeType,
		media.BaseURL,
		media.ProductURL,
		media.Description,
		media.Width,
		media.Height,
		media.IsVideo,
		creationTime,
		item.LocalPath(),
		item.DownloadedAt(),
		item.CreatedAt(),
		item.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert media item: %w", err)
	}

	return nil
}

// Get retrieves a media item by ID, excluding soft-deleted items
func (r *MediaRepository) Get(id string) (*models.PersistedMedia, error) {
	query := `
		SELECT
			id, sequence, media_id, album_id, filename, mime_type,
			base_url, product_url, description, width, height, is_video,
			creation_time, local_path, downloaded_at, created_at, updated_at, deleted_at
		FROM media_items
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByMediaID retrieves a media item by its library media ID
func (r *MediaRepository) GetByMediaID(mediaID string) (*models.PersistedMedia, error) {
	query := `
		SELECT
			id, sequence, media_id, album_id, filename, mime_type,
			base_url, product_url, description, width, height, is_video,
			creation_time, local_path, downloaded_at, created_at, updated_at, deleted_at
		FROM media_items
		WHERE media_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, mediaID))
}

// Update modifies an existing media item in the database.
//
// Refreshes library metadata and download state. The library media ID and the
// album the item was indexed through are fixed at creation.
func (r *MediaRepository) Update(item *models.PersistedMedia) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	item.SetUpdatedAt(now)

	query := `
		UPDATE media_items
		SET filename = ?, mime_type = ?, base_url = ?, product_url = ?,
			description = ?, width = ?, height = ?, is_video = ?,
			creation_time = ?, local_path = ?, downloaded_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	media := item.Media()

	var creationTime any = media.CreationTime
	if media.CreationTime.IsZero() {
		creationTime = nil
	}

	result, err := r.db.Exec(query,
		media.Filename,
		media.MimeType,
		media.BaseURL,
		media.ProductURL,
		media.Description,
		media.Width,
		media.Height,
		media.IsVideo,
		creationTime,
		item.LocalPath(),
		item.DownloadedAt(),
		now,
		item.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update media item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("media item not found or already deleted: %s", item.ID())
	}

	return nil
}

// MarkDownloaded records a completed download for a media item without rewriting its metadata
func (r *MediaRepository) MarkDownloaded(id, localPath string, at time.Time) error {
	query := `
		UPDATE media_items
		SET local_path = ?, downloaded_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, localPath, at, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark media item downloaded: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("media item not found or already deleted: %s", id)
	}

	return nil
}

// Delete soft-deletes a media item by ID
func (r *MediaRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE media_items
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete media item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("media item not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all media items matching the given criteria, excluding soft-deleted items
func (r *MediaRepository) List(criteria map[string]any) ([]*models.PersistedMedia, error) {
	query := `
		SELECT
			id, sequence, media_id, album_id, filename, mime_type,
			base_url, product_url, description, width, height, is_video,
			creation_time, local_path, downloaded_at, created_at, updated_at, deleted_at
		FROM media_items
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if albumID, ok := criteria["album_id"].(string); ok && albumID != "" {
		query += " AND album_id = ?"
		args = append(args, albumID)
	}

	if downloaded, ok := criteria["downloaded"].(bool); ok {
		if downloaded {
			query += " AND downloaded_at IS NOT NULL"
		} else {
			query += " AND downloaded_at IS NULL"
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media items: %w", err)
	}
	defer rows.Close()

	var items []*models.PersistedMedia
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// ListPending retrieves all media items that have not been downloaded yet
func (r *MediaRepository) ListPending() ([]*models.PersistedMedia, error) {
	return r.List(map[string]any{"downloaded": false})
}

// IsDownloaded reports whether the media item with the given library media ID
// has already been downloaded. Unknown media IDs report false.
func (r *MediaRepository) IsDownloaded(mediaID string) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM media_items
		WHERE media_id = ? AND downloaded_at IS NOT NULL AND deleted_at IS NULL
	`

	var count int
	if err := r.db.QueryRow(query, mediaID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query download state: %w", err)
	}

	return count > 0, nil
}

// Count returns the number of indexed media items, excluding soft-deleted items
func (r *MediaRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(1) FROM media_items WHERE deleted_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count media items: %w", err)
	}

	return count, nil
}

// CountDownloaded returns the number of media items with local bytes on disk
func (r *MediaRepository) CountDownloaded() (int, error) {
	query := `
		SELECT COUNT(1)
		FROM media_items
		WHERE downloaded_at IS NOT NULL AND deleted_at IS NULL
	`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count downloaded media items: %w", err)
	}

	return count, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedMedia]
func (r *MediaRepository) scanOne(row *sql.Row) (*models.PersistedMedia, error) {
	var (
		id           string
		sequence     int
		mediaID      string
		albumID      string
		filename     string
		mimeType     string
		baseURL      string
		productURL   string
		description  string
		width        int64
		height       int64
		isVideo      bool
		creationTime sql.NullTime
		localPath    string
		downloadedAt sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &mediaID, &albumID, &filename, &mimeType,
		&baseURL, &productURL, &description, &width, &height, &isVideo,
		&creationTime, &localPath, &downloadedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media item: %w", err)
	}

	dto := models.MediaItem{
		ID:          mediaID,
		Filename:    filename,
		MimeType:    mimeType,
		BaseURL:     baseURL,
		ProductURL:  productURL,
		Description: description,
		Width:       width,
		Height:      height,
		IsVideo:     isVideo,
	}
	if creationTime.Valid {
		dto.CreationTime = creationTime.Time
	}

	item := models.NewPersistedMedia(sequence, albumID, dto)
	item.SetID(id)
	item.SetUpdatedAt(updatedAt)
	if downloadedAt.Valid {
		item.SetDownloaded(localPath, downloadedAt.Time)
	}
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}

	return item, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedMedia]
func (r *MediaRepository) scanRow(rows *sql.Rows) (*models.PersistedMedia, error) {
	var (
		id           string
		sequence     int
		mediaID      string
		albumID      string
		filename     string
		mimeType     string
		baseURL      string
		productURL   string
		description  string
		width        int64
		height       int64
		isVideo      bool
		creationTime sql.NullTime
		localPath    string
		downloadedAt sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := rows.Scan(
		&id, &sequence, &mediaID, &albumID, &filename, &mimeType,
		&baseURL, &productURL, &description, &width, &height, &isVideo,
		&creationTime, &localPath, &downloadedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan media item: %w", err)
	}

	dto := models.MediaItem{
		ID:          mediaID,
		Filename:    filename,
		MimeType:    mimeType,
		BaseURL:     baseURL,
		ProductURL:  productURL,
		Description: description,
		Width:       width,
		Height:      height,
		IsVideo:     isVideo,
	}
	if creationTime.Valid {
		dto.CreationTime = creationTime.Time
	}

	item := models.NewPersistedMedia(sequence, albumID, dto)
	item.SetID(id)
	item.SetUpdatedAt(updatedAt)
	if downloadedAt.Valid {
		item.SetDownloaded(localPath, downloadedAt.Time)
	}
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}

	return item, nil
}
