package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/backoff"
	"github.com/harvmaster/GooglePhotosDownloader/internal/formatter"
	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/scheduler"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
)

// ExportOpts contains configuration for bulk album exports.
type ExportOpts struct {
	Format      string // Export format: json, csv, markdown, txt (default: json)
	OutputDir   string // Base output directory (default: photos_export_{epoch})
	CoverImages bool   // Download album cover images for markdown exports
}

// AlbumExportResult records the outcome of one album export.
type AlbumExportResult struct {
	AlbumID    string   `json:"album_id"`
	AlbumTitle string   `json:"album_title"`
	ItemCount  int      `json:"item_count"`
	Files      []string `json:"files,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// ExportResult summarizes a bulk album export run.
type ExportResult struct {
	TotalAlbums    int                 `json:"total_albums"`
	AlbumsExported int                 `json:"albums_exported"`
	AlbumsFailed   int                 `json:"albums_failed"`
	ItemsExported  int                 `json:"items_exported"`
	Format         string              `json:"format"`
	OutputDir      string              `json:"output_directory"`
	ExportedAt     time.Time           `json:"exported_at"`
	Results        []AlbumExportResult `json:"results"`
	ManifestPath   string              `json:"-"`
}

// ExportAlbums exports multiple albums concurrently and writes a manifest
// summarizing the run.
//
// Each album becomes one scheduled operation; the scheduler's concurrency
// bound keeps the batch from flooding the API while the returned futures
// preserve album order in the result. A failed album is recorded and skipped
// so the rest of the batch still completes.
func (e *LibraryEngine) ExportAlbums(ctx context.Context, progress chan<- ProgressUpdate, albums []models.Album, opts ExportOpts) (*ExportResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: media service not initialized", shared.ErrServiceUnavailable)
	}
	if len(albums) == 0 {
		return nil, fmt.Errorf("%w: no albums to export", shared.ErrInvalidInput)
	}

	switch opts.Format {
	case "":
		opts.Format = "json"
	case "json", "csv", "markdown", "txt":
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("photos_export_%d", time.Now().Unix())
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	sched := scheduler.NewScheduler(ctx, e.concurrency, e.logger)

	futures := make([]*scheduler.Future[AlbumExportResult], len(albums))
	for i, album := range albums {
		futures[i] = scheduler.Process(sched, scheduler.PriorityDownload, e.exportOp(album, opts))
	}

	result := &ExportResult{
		TotalAlbums: len(albums),
		Format:      opts.Format,
		OutputDir:   opts.OutputDir,
		Results:     make([]AlbumExportResult, 0, len(albums)),
	}

	for i, future := range futures {
		res, err := future.Wait()
		if err != nil {
			result.AlbumsFailed++
			result.Results = append(result.Results, AlbumExportResult{
				AlbumID:    albums[i].ID,
				AlbumTitle: albums[i].Title,
				Error:      err.Error(),
			})
			e.sendProgress(progress, albumExportFailedUpdate(i+1, len(albums), albums[i], err))
			continue
		}

		result.AlbumsExported++
		result.ItemsExported += res.ItemCount
		result.Results = append(result.Results, res)
		e.sendProgress(progress, albumExportedUpdate(i+1, len(albums), albums[i], res.ItemCount))
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export run failed: %w", err)
	}

	result.ExportedAt = time.Now().UTC()
	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteExportManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.sendProgress(progress, exportCompletedUpdate(result))
	return result, nil
}

// exportOp builds the operation that exports one album: fetch the full item
// listing with retried page requests, then write it in the requested format.
func (e *LibraryEngine) exportOp(album models.Album, opts ExportOpts) scheduler.Operation[AlbumExportResult] {
	return func(ctx context.Context) (AlbumExportResult, error) {
		export, err := e.fetchAlbumExport(ctx, album)
		if err != nil {
			return AlbumExportResult{}, fmt.Errorf("failed to fetch album media: %w", err)
		}

		files, err := writeAlbumExport(export, opts)
		if err != nil {
			return AlbumExportResult{}, err
		}

		return AlbumExportResult{
			AlbumID:    album.ID,
			AlbumTitle: album.Title,
			ItemCount:  len(export.Items),
			Files:      files,
			Success:    true,
		}, nil
	}
}

// fetchAlbumExport pages through an album's media and assembles the full
// listing. Each page request runs under the engine retry policy.
func (e *LibraryEngine) fetchAlbumExport(ctx context.Context, album models.Album) (*models.AlbumExport, error) {
	export := &models.AlbumExport{Album: album}

	token := ""
	for {
		fetch := backoff.Retry(e.retry, func(ctx context.Context) (*models.MediaPage, error) {
			return e.service.ListAlbumMedia(ctx, album.ID, e.pageSize, token)
		})
		page, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		export.Items = append(export.Items, page.Items...)
		if page.NextPageToken == "" {
			return export, nil
		}
		token = page.NextPageToken
	}
}

// writeAlbumExport writes one album in the requested format and returns the
// files it created.
func writeAlbumExport(export *models.AlbumExport, opts ExportOpts) ([]string, error) {
	base := shared.SanitizeFilename(export.Album.ID, "album")

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, filepath.Join(opts.OutputDir, base))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.ItemsFile, res.MetadataFile}, nil

	case "markdown":
		var coverURL string
		if opts.CoverImages {
			coverURL = export.Album.CoverURL
		}
		res, err := formatter.WriteMarkdownExport(export, filepath.Join(opts.OutputDir, base), coverURL)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil

	case "txt":
		path, err := formatter.WriteTextExport(export, filepath.Join(opts.OutputDir, base+"_items.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil

	case "json":
		path, err := formatter.WriteJSONExport(export, filepath.Join(opts.OutputDir, base+".json"))
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil

	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
}
