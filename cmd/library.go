package main

import (
	"context"
	"fmt"
	"time"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/repositories"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/urfave/cli/v3"
)

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Inspect the locally indexed library",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List indexed media items",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of items to display",
						Value:   50,
					},
					&cli.StringFlag{
						Name:    "album",
						Aliases: []string{"a"},
						Usage:   "Only items indexed from this album ID",
					},
					&cli.BoolFlag{
						Name:  "pending",
						Usage: "Only items that have not been downloaded yet",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.LibraryList,
			},
			{
				Name:   "stats",
				Usage:  "Summarize the local index and recent runs",
				Flags:  []cli.Flag{configFlag()},
				Action: r.LibraryStats,
			},
		},
	}
}

// mediaRow is the JSON projection of an indexed media item.
type mediaRow struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	AlbumID      string     `json:"album_id,omitempty"`
	LocalPath    string     `json:"local_path,omitempty"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
}

// LibraryList prints indexed media items from the local database.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{}
	if albumID := cmd.String("album"); albumID != "" {
		criteria["album_id"] = albumID
	}
	if cmd.Bool("pending") {
		criteria["downloaded"] = false
	}

	items, err := repositories.NewMediaRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list media items: %w", err)
	}

	limit := int(cmd.Int("limit"))
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	if cmd.Bool("json") {
		rows := make([]mediaRow, 0, len(items))
		for _, item := range items {
			rows = append(rows, mediaRow{
				ID:           item.MediaID(),
				Filename:     item.Filename(),
				AlbumID:      item.AlbumID(),
				LocalPath:    item.LocalPath(),
				DownloadedAt: item.DownloadedAt(),
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d media items:\n\n", len(items))
	for i, item := range items {
		r.writePlain("%d. %s\n", i+1, item.Filename())
		r.writePlain("   ID: %s\n", item.MediaID())
		if item.AlbumID() != "" {
			r.writePlain("   Album: %s\n", item.AlbumID())
		}
		if item.Downloaded() {
			r.writePlain("   Local: %s\n", item.LocalPath())
		} else {
			r.writePlain("   Local: (pending)\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// LibraryStats summarizes local index counts and recent run history.
func (r *Runner) LibraryStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	media := repositories.NewMediaRepository(db)

	total, err := media.Count()
	if err != nil {
		return fmt.Errorf("failed to count media items: %w", err)
	}
	downloaded, err := media.CountDownloaded()
	if err != nil {
		return fmt.Errorf("failed to count downloaded items: %w", err)
	}
	albums, err := repositories.NewAlbumRepository(db).List(nil)
	if err != nil {
		return fmt.Errorf("failed to list cached albums: %w", err)
	}

	r.writePlainHeader("Library Statistics")
	r.writePlain("Media items: %d\n", total)
	r.writePlain("Downloaded: %d\n", downloaded)
	r.writePlain("Pending: %d\n", total-downloaded)
	r.writePlain("Albums cached: %d\n", len(albums))

	runs, err := repositories.NewSyncRunRepository(db).List(nil)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}
	if len(runs) > 5 {
		runs = runs[:5]
	}

	r.writePlain("\nRecent runs:\n")
	for _, run := range runs {
		r.writePlain("  %s\n", formatRun(run))
	}

	return nil
}

// formatRun renders one history row, e.g.
//
//	sync completed: 120 indexed, 98 downloaded (2m10s)
func formatRun(run *models.SyncRun) string {
	line := fmt.Sprintf("%s %s: %d indexed, %d downloaded", run.Kind(), run.Status(), run.ItemsIndexed(), run.ItemsDownloaded())
	if run.ItemsFailed() > 0 {
		line += fmt.Sprintf(", %d failed", run.ItemsFailed())
	}
	if d := run.Duration(); d > 0 {
		line += fmt.Sprintf(" (%s)", shared.FormatDuration(d))
	}
	return line
}
