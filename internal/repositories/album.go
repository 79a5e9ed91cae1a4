package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
)

// AlbumRepository implements models.Repository[*models.PersistedAlbum] for album caching.
//
// Handles album CRUD operations with soft delete support and library-ID lookups.
// The cache is refreshed on every album listing so titles and item counts stay current.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Create inserts a new album into the database with generated ID and sequence
func (r *AlbumRepository) Create(album *models.PersistedAlbum) error {
	sequence, err := NextSequence(r.db, "albums")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	album.SetID(id)

	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO albums (id, sequence, album_id, title, item_count, cover_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	dto := album.Album()

	_, err = r.db.Exec(query,
		id,
		sequence,
		dto.ID,
		dto.Title,
		dto.ItemCount,
		dto.CoverURL,
		album.CreatedAt(),
		album.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	return nil
}

// Get retrieves an album by ID, excluding soft-deleted albums
func (r *AlbumRepository) Get(id string) (*models.PersistedAlbum, error) {
	query := `
		SELECT id, sequence, album_id, title, item_count, cover_url, created_at, updated_at, deleted_at
		FROM albums
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByAlbumID retrieves an album by its library album ID
func (r *AlbumRepository) GetByAlbumID(albumID string) (*models.PersistedAlbum, error) {
	query := `
		SELECT id, sequence, album_id, title, item_count, cover_url, created_at, updated_at, deleted_at
		FROM albums
		WHERE album_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, albumID))
}

// Update modifies an existing album in the database
func (r *AlbumRepository) Update(album *models.PersistedAlbum) error {
	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	album.SetUpdatedAt(now)

	query := `
		UPDATE albums
		SET title = ?, item_count = ?, cover_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	dto := album.Album()

	result, err := r.db.Exec(query,
		dto.Title,
		dto.ItemCount,
		dto.CoverURL,
		now,
		album.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("album not found or already deleted: %s", album.ID())
	}

	return nil
}

// Upsert refreshes the cached entry for a library album, creating it on first sight
func (r *AlbumRepository) Upsert(dto models.Album) (*models.PersistedAlbum, error) {
	existing, err := r.GetByAlbumID(dto.ID)
	if err == nil && existing != nil {
		existing.SetAlbum(dto)
		if err := r.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	album := models.NewPersistedAlbum(0, dto)
	if err := r.Create(album); err != nil {
		return nil, err
	}

	return album, nil
}

// Delete soft-deletes an album by ID
func (r *AlbumRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE albums
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("album not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all albums matching the given criteria, excluding soft-deleted albums
func (r *AlbumRepository) List(criteria map[string]any) ([]*models.PersistedAlbum, error) {
	query := `
		SELECT id, sequence, album_id, title, item_count, cover_url, created_at, updated_at, deleted_at
		FROM albums
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if title, ok := criteria["title"].(string); ok && title != "" {
		query += " AND title = ?"
		args = append(args, title)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.PersistedAlbum
	for rows.Next() {
		album, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// scanOne scans a single row into a [models.PersistedAlbum]
func (r *AlbumRepository) scanOne(row *sql.Row) (*models.PersistedAlbum, error) {
	var (
		id        string
		sequence  int
		albumID   string
		title     string
		itemCount int64
		coverURL  string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &albumID, &title, &itemCount, &coverURL, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("album not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	dto := models.Album{
		ID:        albumID,
		Title:     title,
		ItemCount: itemCount,
		CoverURL:  coverURL,
	}

	album := models.NewPersistedAlbum(sequence, dto)
	album.SetID(id)
	album.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		album.SetDeletedAt(&deletedAt.Time)
	}

	return album, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedAlbum]
func (r *AlbumRepository) scanRow(rows *sql.Rows) (*models.PersistedAlbum, error) {
	var (
		id        string
		sequence  int
		albumID   string
		title     string
		itemCount int64
		coverURL  string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &albumID, &title, &itemCount, &coverURL, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	dto := models.Album{
		ID:        albumID,
		Title:     title,
		ItemCount: itemCount,
		CoverURL:  coverURL,
	}

	album := models.NewPersistedAlbum(sequence, dto)
	album.SetID(id)
	album.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		album.SetDeletedAt(&deletedAt.Time)
	}

	return album, nil
}
