package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	tu "github.com/harvmaster/GooglePhotosDownloader/internal/testing"
)

func albumFixture(id, title string) models.Album {
	return models.Album{ID: id, Title: title}
}

func TestLibraryEngine_ExportAlbums(t *testing.T) {
	t.Run("exports albums and writes a manifest", func(t *testing.T) {
		library := newMockLibrary()
		library.addAlbumPage("alb1", "", "", mediaFixture("m1"), mediaFixture("m2"))
		library.addAlbumPage("alb2", "", "", mediaFixture("m3"))

		engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

		albums := []models.Album{albumFixture("alb1", "Vacation"), albumFixture("alb2", "Pets")}
		opts := ExportOpts{Format: "json", OutputDir: t.TempDir()}

		result, err := engine.ExportAlbums(context.Background(), nil, albums, opts)
		if err != nil {
			t.Fatalf("ExportAlbums() error = %v", err)
		}
		if result.TotalAlbums != 2 {
			t.Errorf("ExportAlbums() totalAlbums = %v, want 2", result.TotalAlbums)
		}
		if result.AlbumsExported != 2 {
			t.Errorf("ExportAlbums() albumsExported = %v, want 2", result.AlbumsExported)
		}
		if result.AlbumsFailed != 0 {
			t.Errorf("ExportAlbums() albumsFailed = %v, want 0", result.AlbumsFailed)
		}
		if result.ItemsExported != 3 {
			t.Errorf("ExportAlbums() itemsExported = %v, want 3", result.ItemsExported)
		}

		tu.AssertFileExists(t, filepath.Join(opts.OutputDir, "alb1.json"))
		tu.AssertFileExists(t, filepath.Join(opts.OutputDir, "alb2.json"))
		tu.AssertFileExists(t, result.ManifestPath)

		if result.ManifestPath != filepath.Join(opts.OutputDir, "export_manifest.json") {
			t.Errorf("ExportAlbums() manifestPath = %q, want export_manifest.json in output dir", result.ManifestPath)
		}

		var manifest ExportResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("manifest should be valid JSON: %v", err)
		}
		if manifest.TotalAlbums != 2 || manifest.AlbumsExported != 2 {
			t.Errorf("manifest counts = %v/%v, want 2/2", manifest.TotalAlbums, manifest.AlbumsExported)
		}
		if len(manifest.Results) != 2 {
			t.Fatalf("manifest results = %v, want 2", len(manifest.Results))
		}
		if manifest.Results[0].AlbumID != "alb1" || manifest.Results[1].AlbumID != "alb2" {
			t.Errorf("manifest should preserve album order, got %v then %v",
				manifest.Results[0].AlbumID, manifest.Results[1].AlbumID)
		}
		if manifest.ExportedAt.IsZero() {
			t.Error("manifest exportedAt should be set")
		}
	})

	t.Run("assembles multi-page albums", func(t *testing.T) {
		library := newMockLibrary()
		library.addAlbumPage("alb1", "", "p2", mediaFixture("m1"), mediaFixture("m2"))
		library.addAlbumPage("alb1", "p2", "", mediaFixture("m3"))

		engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

		result, err := engine.ExportAlbums(context.Background(), nil,
			[]models.Album{albumFixture("alb1", "Vacation")},
			ExportOpts{Format: "json", OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("ExportAlbums() error = %v", err)
		}
		if result.ItemsExported != 3 {
			t.Errorf("ExportAlbums() itemsExported = %v, want 3", result.ItemsExported)
		}
		if result.Results[0].ItemCount != 3 {
			t.Errorf("ExportAlbums() album itemCount = %v, want 3", result.Results[0].ItemCount)
		}
	})

	t.Run("isolates failing albums", func(t *testing.T) {
		library := newMockLibrary()
		library.failAlbumListing("alb1", fmt.Errorf("%w: status 503 for alb1", shared.ErrServiceUnavailable))
		library.addAlbumPage("alb2", "", "", mediaFixture("m3"))

		engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

		albums := []models.Album{albumFixture("alb1", "Vacation"), albumFixture("alb2", "Pets")}
		result, err := engine.ExportAlbums(context.Background(), nil, albums,
			ExportOpts{Format: "json", OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("ExportAlbums() error = %v, album failures should not fail the run", err)
		}
		if result.AlbumsExported != 1 {
			t.Errorf("ExportAlbums() albumsExported = %v, want 1", result.AlbumsExported)
		}
		if result.AlbumsFailed != 1 {
			t.Errorf("ExportAlbums() albumsFailed = %v, want 1", result.AlbumsFailed)
		}

		failed := result.Results[0]
		if failed.AlbumID != "alb1" || failed.Success {
			t.Errorf("ExportAlbums() first result = %+v, want failed alb1", failed)
		}
		if !strings.Contains(failed.Error, "failed to fetch album media") {
			t.Errorf("ExportAlbums() failure = %q, should name the fetch", failed.Error)
		}
		if !result.Results[1].Success {
			t.Errorf("ExportAlbums() second result = %+v, want successful alb2", result.Results[1])
		}

		// Retry policy: 1 initial + 2 retries for alb1, 1 listing for alb2.
		if got := library.callCount(); got != 4 {
			t.Errorf("ExportAlbums() listing calls = %v, want 4", got)
		}

		tu.AssertFileExists(t, result.ManifestPath)
	})

	t.Run("rejects empty album set", func(t *testing.T) {
		engine, _ := newTestEngine(t, newMockLibrary(), newMockMediaStore(), newMockMediaCache(), nil)
		if _, err := engine.ExportAlbums(context.Background(), nil, nil, ExportOpts{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ExportAlbums() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		engine, _ := newTestEngine(t, newMockLibrary(), newMockMediaStore(), newMockMediaCache(), nil)
		albums := []models.Album{albumFixture("alb1", "Vacation")}
		_, err := engine.ExportAlbums(context.Background(), nil, albums, ExportOpts{Format: "yaml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("ExportAlbums() error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("media service not initialized", func(t *testing.T) {
		engine, err := NewLibraryEngine(nil, newMockMediaStore(), newMockMediaCache(), nil, testEngineConfig(t))
		if err != nil {
			t.Fatalf("NewLibraryEngine() error = %v", err)
		}
		albums := []models.Album{albumFixture("alb1", "Vacation")}
		if _, err := engine.ExportAlbums(context.Background(), nil, albums, ExportOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("ExportAlbums() error = %v, want ErrServiceUnavailable", err)
		}
	})

	t.Run("cancelled context fails the run", func(t *testing.T) {
		library := newMockLibrary()
		library.addAlbumPage("alb1", "", "", mediaFixture("m1"))

		engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.ExportAlbums(cancelled, nil, []models.Album{albumFixture("alb1", "Vacation")},
			ExportOpts{Format: "json", OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ExportAlbums() error = %v, want context.Canceled", err)
		}
	})
}

func TestLibraryEngine_ExportAlbums_Formats(t *testing.T) {
	tests := []struct {
		format    string
		wantFiles []string
	}{
		{format: "json", wantFiles: []string{"alb1.json"}},
		{format: "csv", wantFiles: []string{"alb1_items.csv", "alb1_metadata.json"}},
		{format: "markdown", wantFiles: []string{filepath.Join("alb1", "README.md")}},
		{format: "txt", wantFiles: []string{"alb1_items.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			library := newMockLibrary()
			library.addAlbumPage("alb1", "", "", mediaFixture("m1"), mediaFixture("m2"))

			engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

			opts := ExportOpts{Format: tt.format, OutputDir: t.TempDir()}
			result, err := engine.ExportAlbums(context.Background(), nil,
				[]models.Album{albumFixture("alb1", "Vacation")}, opts)
			if err != nil {
				t.Fatalf("ExportAlbums() error = %v", err)
			}
			if result.AlbumsExported != 1 {
				t.Fatalf("ExportAlbums() albumsExported = %v, want 1", result.AlbumsExported)
			}
			for _, file := range tt.wantFiles {
				tu.AssertFileExists(t, filepath.Join(opts.OutputDir, file))
			}
			if len(result.Results[0].Files) != len(tt.wantFiles) {
				t.Errorf("ExportAlbums() files = %v, want %v entries", result.Results[0].Files, len(tt.wantFiles))
			}
		})
	}

	t.Run("defaults to json", func(t *testing.T) {
		library := newMockLibrary()
		library.addAlbumPage("alb1", "", "", mediaFixture("m1"))

		engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

		opts := ExportOpts{OutputDir: t.TempDir()}
		result, err := engine.ExportAlbums(context.Background(), nil,
			[]models.Album{albumFixture("alb1", "Vacation")}, opts)
		if err != nil {
			t.Fatalf("ExportAlbums() error = %v", err)
		}
		if result.Format != "json" {
			t.Errorf("ExportAlbums() format = %q, want json", result.Format)
		}
		tu.AssertFileExists(t, filepath.Join(opts.OutputDir, "alb1.json"))
	})
}

func TestLibraryEngine_ExportAlbums_Progress(t *testing.T) {
	library := newMockLibrary()
	library.addAlbumPage("alb1", "", "", mediaFixture("m1"))
	library.failAlbumListing("alb2", fmt.Errorf("%w: status 503 for alb2", shared.ErrServiceUnavailable))

	engine, _ := newTestEngine(t, library, newMockMediaStore(), newMockMediaCache(), nil)

	progress := make(chan ProgressUpdate, 16)
	albums := []models.Album{albumFixture("alb1", "Vacation"), albumFixture("alb2", "Pets")}
	if _, err := engine.ExportAlbums(context.Background(), progress, albums, ExportOpts{Format: "json", OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("ExportAlbums() error = %v", err)
	}

	var updates []ProgressUpdate
	for len(progress) > 0 {
		updates = append(updates, <-progress)
	}
	if len(updates) != 3 {
		t.Fatalf("ExportAlbums() updates = %v, want 3", len(updates))
	}

	if updates[0].Phase != ExportAlbum || !strings.Contains(updates[0].Message, "Vacation") {
		t.Errorf("first update = %+v, want exported Vacation", updates[0])
	}
	if updates[1].Phase != ExportAlbum || !strings.Contains(updates[1].Message, "✗") {
		t.Errorf("second update = %+v, want failed Pets", updates[1])
	}

	last := updates[2]
	if last.Phase != Finalize {
		t.Errorf("final update phase = %v, want %v", last.Phase, Finalize)
	}
	result, ok := last.Data.(*ExportResult)
	if !ok {
		t.Fatalf("final update data = %T, want *ExportResult", last.Data)
	}
	if result.AlbumsExported != 1 || result.AlbumsFailed != 1 {
		t.Errorf("final result counts = %v/%v, want 1/1", result.AlbumsExported, result.AlbumsFailed)
	}
}
