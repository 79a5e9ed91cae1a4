package tasks

import (
	"fmt"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	QueuePending
	DownloadMedia
	ExportAlbum
	Finalize
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case QueuePending:
		return "queue_pending"
	case DownloadMedia:
		return "download_media"
	case ExportAlbum:
		return "export_album"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func indexStartedUpdate(albumID string) ProgressUpdate {
	message := "Indexing library..."
	if albumID != "" {
		message = fmt.Sprintf("Indexing album %s...", albumID)
	}
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    1,
		Total:   1,
		Message: message,
	}
}

func pageIndexedUpdate(page, indexed, queued int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   page,
		Message: fmt.Sprintf("[page %d] Indexed %d items (%d queued)", page, indexed, queued),
	}
}

func pendingQueuedUpdate(queued, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueuePending,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Queued %d pending items (%d skipped)", queued, skipped),
	}
}

func downloadedUpdate(step, total int, item models.MediaItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadMedia,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, item.Filename),
		Data:    item,
	}
}

func downloadFailedUpdate(step, total int, item models.MediaItem, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadMedia,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.Filename, err),
	}
}

func albumExportedUpdate(step, total int, album models.Album, itemCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbum,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d items)", step, total, album.Title, itemCount),
		Data:    album,
	}
}

func albumExportFailedUpdate(step, total int, album models.Album, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAlbum,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, album.Title, err),
	}
}

func exportCompletedUpdate(result *ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Finalize,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Export complete: %d albums exported, %d failed (%d items)",
			result.AlbumsExported, result.AlbumsFailed, result.ItemsExported),
		Data: result,
	}
}

func runCompletedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Finalize,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Run complete: %d indexed, %d downloaded, %d failed, %d skipped",
			result.ItemsIndexed, result.ItemsDownloaded, result.ItemsFailed, result.ItemsSkipped),
		Data: result,
	}
}
