package models

import (
	"fmt"
	"time"
)

// PersistedMedia is a database-backed media item with download state.
//
// Wraps the MediaItem DTO with sequence ordering, the album it was indexed
// through, the local file path once downloaded, and soft delete support.
type PersistedMedia struct {
	id           string
	sequence     int
	albumID      string // album the item was indexed through, empty for library listing
	media        MediaItem
	localPath    string
	downloadedAt *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewPersistedMedia creates a PersistedMedia from a library DTO. The database
// ID is assigned by the repository on Create.
func NewPersistedMedia(sequence int, albumID string, dto MediaItem) *PersistedMedia {
	now := time.Now()
	return &PersistedMedia{
		sequence:  sequence,
		albumID:   albumID,
		media:     dto,
		createdAt: now,
		updatedAt: now,
	}
}

func (m *PersistedMedia) ID() string { return m.id }
func (m *PersistedMedia) CreatedAt() time.Time { return m.createdAt }
func (m *PersistedMedia) UpdatedAt() time.Time { return m.updatedAt }

// Validate checks that the entity carries the fields persistence relies on.
func (m *PersistedMedia) Validate() error {
	if m.media.ID == "" {
		return fmt.Errorf("media item is missing its library ID")
	}
	if m.media.Filename == "" {
		return fmt.Errorf("media item %s is missing a filename", m.media.ID)
	}
	return nil
}

func (m *PersistedMedia) Sequence() int { return m.sequence }
func (m *PersistedMedia) AlbumID() string { return m.albumID }
func (m *PersistedMedia) Media() MediaItem { return m.media }
func (m *PersistedMedia) MediaID() string { return m.media.ID }
func (m *PersistedMedia) Filename() string { return m.media.Filename }
func (m *PersistedMedia) LocalPath() string { return m.localPath }
func (m *PersistedMedia) DownloadedAt() *time.Time { return m.downloadedAt }
func (m *PersistedMedia) DeletedAt() *time.Time { return m.deletedAt }

// Downloaded reports whether the media bytes have been written locally.
func (m *PersistedMedia) Downloaded() bool { return m.downloadedAt != nil }

func (m *PersistedMedia) SetID(id string) { m.id = id }
func (m *PersistedMedia) SetUpdatedAt(t time.Time) { m.updatedAt = t }
func (m *PersistedMedia) SetDeletedAt(t *time.Time) { m.deletedAt = t }
func (m *PersistedMedia) SetMedia(dto MediaItem) { m.media = dto }

// SetDownloaded records a completed download.
func (m *PersistedMedia) SetDownloaded(path string, at time.Time) {
	m.localPath = path
	m.downloadedAt = &at
}

// PersistedAlbum is a database-backed album listing entry.
type PersistedAlbum struct {
	id        string
	sequence  int
	album     Album
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedAlbum creates a PersistedAlbum from a library DTO.
func NewPersistedAlbum(sequence int, dto Album) *PersistedAlbum {
	now := time.Now()
	return &PersistedAlbum{
		sequence:  sequence,
		album:     dto,
		createdAt: now,
		updatedAt: now,
	}
}

func (a *PersistedAlbum) ID() string { return a.id }
func (a *PersistedAlbum) CreatedAt() time.Time { return a.createdAt }
func (a *PersistedAlbum) UpdatedAt() time.Time { return a.updatedAt }

// Validate checks that the entity carries the fields persistence relies on.
func (a *PersistedAlbum) Validate() error {
	if a.album.ID == "" {
		return fmt.Errorf("album is missing its library ID")
	}
	if a.album.Title == "" {
		return fmt.Errorf("album %s is missing a title", a.album.ID)
	}
	return nil
}

func (a *PersistedAlbum) Sequence() int { return a.sequence }
func (a *PersistedAlbum) Album() Album { return a.album }
func (a *PersistedAlbum) AlbumID() string { return a.album.ID }
func (a *PersistedAlbum) Title() string { return a.album.Title }
func (a *PersistedAlbum) DeletedAt() *time.Time { return a.deletedAt }

func (a *PersistedAlbum) SetID(id string) { a.id = id }
func (a *PersistedAlbum) SetUpdatedAt(t time.Time) { a.updatedAt = t }
func (a *PersistedAlbum) SetDeletedAt(t *time.Time) { a.deletedAt = t }
func (a *PersistedAlbum) SetAlbum(dto Album) { a.album = dto }
