package main

import (
	"context"
	"fmt"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/harvmaster/GooglePhotosDownloader/internal/tasks"
	"github.com/urfave/cli/v3"
)

func indexCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Catalog library metadata without downloading",
		Flags: []cli.Flag{
			configFlag(),
			albumFlag(),
		},
		Action: r.Index,
	}
}

func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "download",
		Usage:  "Download every indexed item that is not on disk yet",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Download,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Index the library and download new items in one pass",
		Flags: []cli.Flag{
			configFlag(),
			albumFlag(),
		},
		Action: r.Sync,
	}
}

// Sync indexes the library (or one album) and downloads new items as they
// are discovered.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	return r.runEngine(ctx, cmd, models.RunKindSync)
}

// Index pages through the library (or one album) caching metadata only.
func (r *Runner) Index(ctx context.Context, cmd *cli.Command) error {
	return r.runEngine(ctx, cmd, models.RunKindIndex)
}

// Download drains every cached item without a download timestamp.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	return r.runEngine(ctx, cmd, models.RunKindDownload)
}

// runEngine performs one engine run of the given kind with live progress
// rendering and a summary.
func (r *Runner) runEngine(ctx context.Context, cmd *cli.Command, kind string) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.newEngine(db)
	if err != nil {
		return err
	}

	albumID := cmd.String("album")
	r.logger.Info("starting run", "kind", kind, "album", albumID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPage:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.QueuePending:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.DownloadMedia:
				r.writePlain("📥 %s\n", update.Message)
			}
		}
	}()

	var result *tasks.SyncResult
	switch kind {
	case models.RunKindIndex:
		result, err = engine.Index(ctx, progressCh, albumID)
	case models.RunKindDownload:
		result, err = engine.Download(ctx, progressCh)
	default:
		result, err = engine.Sync(ctx, progressCh, albumID)
	}
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("%s Complete!", titleForKind(kind)))
	r.writePlain("Indexed: %d\n", result.ItemsIndexed)
	r.writePlain("Queued: %d (skipped %d already downloaded)\n", result.ItemsQueued, result.ItemsSkipped)
	r.writePlain("Downloaded: %d\n", result.ItemsDownloaded)
	if result.Run != nil {
		r.writePlain("Duration: %v\n", shared.FormatDuration(result.Run.Duration()))
	}

	if result.ItemsFailed > 0 {
		r.writePlain("\nFailed to download %d items:\n", result.ItemsFailed)
		for _, failure := range result.Failures {
			r.writePlain("  - %s: %v\n", failure.Item.Filename, failure.Error)
		}
	}

	return nil
}

func titleForKind(kind string) string {
	switch kind {
	case models.RunKindIndex:
		return "Index"
	case models.RunKindDownload:
		return "Download"
	default:
		return "Sync"
	}
}

// albumFlag scopes a run to a single album.
func albumFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "album",
		Aliases: []string{"a"},
		Usage:   "Album ID to process (default: entire library)",
	}
}
