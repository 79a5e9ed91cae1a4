package main

import (
	"context"
	"fmt"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/repositories"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/harvmaster/GooglePhotosDownloader/internal/tasks"
	"github.com/urfave/cli/v3"
)

func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "Browse and export Google Photos albums",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List albums in your library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of albums to display",
						Value:   50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Cache the album listing in the local database",
					},
				},
				Action: r.AlbumsList,
			},
			{
				Name:  "export",
				Usage: "Export album listings to portable files with a manifest",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: photos_export_<timestamp>)",
					},
					&cli.StringSliceFlag{
						Name:    "album",
						Aliases: []string{"a"},
						Usage:   "Album ID or title to export (repeatable, default: all albums)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download album cover images for markdown exports",
					},
				},
				Action: r.AlbumsExport,
			},
		},
	}
}

// AlbumsList lists the authenticated user's albums, optionally caching them
// in the local database.
func (r *Runner) AlbumsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	r.logger.Infof("listing albums with limit %v", limit)

	albums, err := r.fetchAlbums(ctx)
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(albums) {
		albums = albums[:limit]
	}

	if cmd.Bool("save") {
		if err := r.cacheAlbums(albums); err != nil {
			r.logger.Warnf("failed to cache albums %v", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d albums:\n\n", len(albums))
	for i, album := range albums {
		r.writePlain("%d. %s\n", i+1, album.Title)
		r.writePlain("   ID: %s\n", album.ID)
		r.writePlain("   Items: %d\n", album.ItemCount)
		r.writePlain("\n")
	}

	return nil
}

// AlbumsExport exports album listings through the engine's export pipeline
// and prints the manifest summary.
func (r *Runner) AlbumsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	albums, err := r.fetchAlbums(ctx)
	if err != nil {
		return err
	}

	if selectors := cmd.StringSlice("album"); len(selectors) > 0 {
		if albums, err = filterAlbums(albums, selectors); err != nil {
			return err
		}
	}

	// Exports never touch the database, so the engine runs without one.
	engine, err := r.newEngine(nil)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	r.writePlain("Exporting %d albums (%s)...\n\n", len(albums), format)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Phase == tasks.ExportAlbum {
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.ExportAlbums(ctx, progressCh, albums, tasks.ExportOpts{
		Format:      format,
		OutputDir:   cmd.String("output"),
		CoverImages: cmd.Bool("covers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete!")
	r.writePlain("Albums exported: %d/%d\n", result.AlbumsExported, result.TotalAlbums)
	r.writePlain("Items exported: %d\n", result.ItemsExported)
	r.writePlain("Output directory: %s\n", result.OutputDir)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.AlbumsFailed > 0 {
		r.writePlain("\nFailed to export %d albums:\n", result.AlbumsFailed)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.AlbumTitle, res.Error)
			}
		}
	}

	return nil
}

// fetchAlbums lists albums, retrying once after reauthorization when the
// token has expired.
func (r *Runner) fetchAlbums(ctx context.Context) ([]models.Album, error) {
	albums, err := r.service.GetAlbums(ctx)
	if err == nil {
		return albums, nil
	}

	retry, authErr := r.handleAuthError(ctx, err)
	if !retry {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if authErr != nil {
		return nil, authErr
	}

	if albums, err = r.service.GetAlbums(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return albums, nil
}

// cacheAlbums upserts the fetched albums into the local database.
func (r *Runner) cacheAlbums(albums []models.Album) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewAlbumRepository(db)
	for _, album := range albums {
		if _, err := repo.Upsert(album); err != nil {
			return fmt.Errorf("failed to cache album %s: %w", album.ID, err)
		}
	}

	r.logger.Info("albums cached", "count", len(albums))
	return nil
}

// filterAlbums keeps the albums whose ID or title matches one of the
// requested selectors.
func filterAlbums(albums []models.Album, selectors []string) ([]models.Album, error) {
	byID := make(map[string]models.Album, len(albums))
	byTitle := make(map[string]models.Album, len(albums))
	for _, album := range albums {
		byID[album.ID] = album
		byTitle[album.Title] = album
	}

	selected := make([]models.Album, 0, len(selectors))
	for _, sel := range selectors {
		if album, ok := byID[sel]; ok {
			selected = append(selected, album)
			continue
		}
		if album, ok := byTitle[sel]; ok {
			selected = append(selected, album)
			continue
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, sel)
	}

	return selected, nil
}
