package repositories

import (
	"fmt"
	"strings"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
)

// MediaCacheAdapter implements tasks.MediaCacher using MediaRepository.
//
// Provides automatic media caching with deduplication via the media_id constraint.
// Because base URLs expire after roughly an hour, already-known items are
// refreshed with the incoming metadata rather than skipped; download state and
// local paths survive the refresh.
type MediaCacheAdapter struct {
	repo *MediaRepository
}

// NewMediaCacheAdapter creates a new MediaCacheAdapter with the given repository
func NewMediaCacheAdapter(repo *MediaRepository) *MediaCacheAdapter {
	return &MediaCacheAdapter{repo: repo}
}

// CacheMedia records a media item discovered by the indexer.
// Known items have their metadata and base URL refreshed.
// Only returns errors for actual failures (not constraint violations).
func (a *MediaCacheAdapter) CacheMedia(albumID string, media models.MediaItem) error {
	existing, err := a.repo.GetByMediaID(media.ID)
	if err == nil && existing != nil {
		existing.SetMedia(media)
		if err := a.repo.Update(existing); err != nil {
			return fmt.Errorf("failed to refresh media item: %w", err)
		}
		return nil
	}

	item := models.NewPersistedMedia(0, albumID, media)

	err = a.repo.Create(item)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache media item: %w", err)
	}

	return nil
}
