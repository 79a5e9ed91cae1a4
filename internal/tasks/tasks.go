package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harvmaster/GooglePhotosDownloader/internal/backoff"
	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/scheduler"
	"github.com/harvmaster/GooglePhotosDownloader/internal/services"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
)

// MediaCacher persists media metadata discovered while indexing.
// Cache failures are logged and skipped so one bad row cannot stall a run.
type MediaCacher interface {
	CacheMedia(albumID string, media models.MediaItem) error
}

// MediaStore is the slice of the media repository the engine consults and updates.
type MediaStore interface {
	IsDownloaded(mediaID string) (bool, error)
	GetByMediaID(mediaID string) (*models.PersistedMedia, error)
	MarkDownloaded(id, localPath string, at time.Time) error
	ListPending() ([]*models.PersistedMedia, error)
}

// RunRecorder persists run history rows. A nil recorder disables history.
type RunRecorder interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// ItemResult records the outcome of one media download.
type ItemResult struct {
	Item  models.MediaItem
	Path  string // destination path, empty on failure
	Error error
}

// SyncResult contains the aggregate counts and failures from a run.
type SyncResult struct {
	Run             *models.SyncRun
	ItemsIndexed    int // media items seen across every fetched page
	ItemsQueued     int // accepted by the download queue
	ItemsSkipped    int // dropped by the queue's admission filters
	ItemsDownloaded int
	ItemsFailed     int
	Failures        []ItemResult
}

// SyncEngine defines the long-running library operations.
type SyncEngine interface {
	// Sync indexes the library (or one album) and downloads every new item as it is discovered.
	Sync(ctx context.Context, progress chan<- ProgressUpdate, albumID string) (*SyncResult, error)

	// Index pages through the library (or one album) caching metadata without downloading.
	Index(ctx context.Context, progress chan<- ProgressUpdate, albumID string) (*SyncResult, error)

	// Download re-queues every cached item without a download timestamp and drains the queue.
	Download(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error)
}

// EngineConfig contains tunables for a LibraryEngine.
type EngineConfig struct {
	DownloadDir string         // Destination directory for media files (default: photos)
	Concurrency int            // Scheduler bound shared by indexing and downloads (default: 5, capped at 10)
	PageSize    int            // Items requested per listing page (default: 100)
	Retry       backoff.Policy // Download retry schedule (default: 3 retries, 500ms doubling to 8s)
	Logger      *log.Logger
}

// LibraryEngine implements SyncEngine against a media service and the local database.
//
// Each operation builds its own queue and scheduler pair: listing pages run at
// indexing priority, downloads at download priority, sharing one concurrency
// bound so discovery stays ahead of the slower transfers.
type LibraryEngine struct {
	service services.Service
	store   MediaStore
	cache   MediaCacher
	runs    RunRecorder

	downloadDir string
	concurrency int
	pageSize    int
	retry       backoff.Policy
	logger      *log.Logger
}

// NewLibraryEngine creates an engine with the provided dependencies. Zero
// config fields fall back to defaults; an explicitly invalid retry policy is
// an error.
func NewLibraryEngine(service services.Service, store MediaStore, cache MediaCacher, runs RunRecorder, config EngineConfig) (*LibraryEngine, error) {
	if config.DownloadDir == "" {
		config.DownloadDir = "photos"
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}
	if config.Concurrency > 10 {
		config.Concurrency = 10
	}
	if config.PageSize <= 0 || config.PageSize > 100 {
		config.PageSize = 100
	}
	if config.Retry == (backoff.Policy{}) {
		config.Retry = backoff.Policy{MaxRetries: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
	}
	if err := config.Retry.Validate(); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}

	return &LibraryEngine{
		service:     service,
		store:       store,
		cache:       cache,
		runs:        runs,
		downloadDir: config.DownloadDir,
		concurrency: config.Concurrency,
		pageSize:    config.PageSize,
		retry:       config.Retry,
		logger:      shared.WithLogger(config.Logger, "component", "engine"),
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

// Sync performs a full index plus download run.
func (e *LibraryEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate, albumID string) (*SyncResult, error) {
	return e.run(ctx, progress, models.RunKindSync, albumID)
}

// Index caches metadata for the library or one album without downloading.
func (e *LibraryEngine) Index(ctx context.Context, progress chan<- ProgressUpdate, albumID string) (*SyncResult, error) {
	return e.run(ctx, progress, models.RunKindIndex, albumID)
}

// Download drains every cached item that has no download timestamp yet.
func (e *LibraryEngine) Download(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return e.run(ctx, progress, models.RunKindDownload, "")
}

// run drives one recorded operation end to end: seed the pipeline for the
// run kind, wait for the scheduler to drain, then settle the run row.
func (e *LibraryEngine) run(ctx context.Context, progress chan<- ProgressUpdate, kind, albumID string) (*SyncResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: media service not initialized", shared.ErrServiceUnavailable)
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: media store not initialized", shared.ErrServiceUnavailable)
	}
	if kind != models.RunKindDownload && e.cache == nil {
		return nil, fmt.Errorf("%w: media cache not initialized", shared.ErrServiceUnavailable)
	}

	run := models.NewSyncRun(0, kind, albumID)
	if e.runs != nil {
		if err := e.runs.Create(run); err != nil {
			e.logger.Warn("failed to record run start", "kind", kind, "error", err)
		}
	}

	state := e.newSyncState(ctx, progress, albumID)

	if kind != models.RunKindIndex {
		handle := state.queue.Events().Subscribe(scheduler.EventItemAdded, func(ev scheduler.QueueEvent[models.MediaItem]) {
			state.scheduleDownload(ev.Item)
		})
		defer state.queue.Events().Unsubscribe(scheduler.EventItemAdded, handle)
	}

	if kind == models.RunKindDownload {
		if err := state.queuePending(); err != nil {
			return e.finish(run, progress, state, err)
		}
	} else {
		e.sendProgress(progress, indexStartedUpdate(albumID))
		state.schedulePage("")
	}

	state.wg.Wait()

	if err := ctx.Err(); err != nil {
		return e.finish(run, progress, state, err)
	}
	return e.finish(run, progress, state, state.firstIndexError())
}

// finish settles the run row from the state counters and assembles the result.
// A non-nil cause marks the run failed and is returned wrapped.
func (e *LibraryEngine) finish(run *models.SyncRun, progress chan<- ProgressUpdate, state *syncState, cause error) (*SyncResult, error) {
	result := state.result()
	result.Run = run

	if cause != nil {
		run.Fail(cause)
		run.SetItemsIndexed(result.ItemsIndexed)
		run.SetItemsDownloaded(result.ItemsDownloaded)
		run.SetItemsFailed(result.ItemsFailed)
	} else {
		run.Complete(result.ItemsIndexed, result.ItemsDownloaded, result.ItemsFailed)
	}

	if e.runs != nil {
		if err := e.runs.Update(run); err != nil {
			e.logger.Warn("failed to record run result", "run_id", run.ID(), "error", err)
		}
	}

	if cause != nil {
		return result, fmt.Errorf("%s run failed: %w", run.Kind(), cause)
	}
	e.sendProgress(progress, runCompletedUpdate(result))
	return result, nil
}

// syncState carries one run's pipeline: the media queue feeding downloads,
// the scheduler bounding concurrency, and the counters the result reports.
type syncState struct {
	engine   *LibraryEngine
	progress chan<- ProgressUpdate
	albumID  string

	queue *scheduler.Queue[models.MediaItem]
	sched *scheduler.Scheduler
	wg    sync.WaitGroup

	mu         sync.Mutex
	pages      int
	indexed    int
	queued     int
	skipped    int
	downloaded int
	failed     int
	failures   []ItemResult
	indexErr   error
}

func (e *LibraryEngine) newSyncState(ctx context.Context, progress chan<- ProgressUpdate, albumID string) *syncState {
	state := &syncState{
		engine:   e,
		progress: progress,
		albumID:  albumID,
		queue:    scheduler.NewQueue[models.MediaItem](e.logger),
		sched:    scheduler.NewScheduler(ctx, e.concurrency, e.logger),
	}

	// Admission filter: an item already marked downloaded never re-enters the
	// queue. A store error keeps the item; downloading twice beats losing it.
	state.queue.AddFilter(func(item models.MediaItem) bool {
		downloaded, err := e.store.IsDownloaded(item.ID)
		if err != nil {
			e.logger.Warn("download check failed, keeping item", "media_id", item.ID, "error", err)
			return false
		}
		return downloaded
	})
	return state
}

// schedulePage submits one listing page at indexing priority. Each page
// schedules its successor before releasing its wait-group slot, so the run
// cannot finish while pages remain.
func (s *syncState) schedulePage(token string) {
	s.wg.Add(1)

	fetch := backoff.Retry(s.engine.retry, func(ctx context.Context) (*models.MediaPage, error) {
		if s.albumID == "" {
			return s.engine.service.ListLibrary(ctx, s.engine.pageSize, token)
		}
		return s.engine.service.ListAlbumMedia(ctx, s.albumID, s.engine.pageSize, token)
	})

	scheduler.Process(s.sched, scheduler.PriorityIndex, func(ctx context.Context) (*models.MediaPage, error) {
		defer s.wg.Done()

		page, err := fetch(ctx)
		if err != nil {
			s.recordIndexError(err)
			return nil, err
		}
		s.indexPage(page)
		return page, nil
	})
}

// indexPage caches and queues one page of media items, then chains the next
// page while this operation still holds its wait-group slot.
func (s *syncState) indexPage(page *models.MediaPage) {
	var indexed, queued, skipped int
	for _, item := range page.Items {
		if err := s.engine.cache.CacheMedia(s.albumID, item); err != nil {
			s.engine.logger.Warn("failed to cache media item", "media_id", item.ID, "error", err)
		}
		indexed++
		if s.queue.AddItem(item, scheduler.PriorityDownload) {
			queued++
		} else {
			skipped++
		}
	}

	s.mu.Lock()
	s.pages++
	pageNum := s.pages
	s.indexed += indexed
	s.queued += queued
	s.skipped += skipped
	s.mu.Unlock()

	if page.NextPageToken != "" {
		s.schedulePage(page.NextPageToken)
	}
	s.engine.sendProgress(s.progress, pageIndexedUpdate(pageNum, indexed, queued))
}

// queuePending feeds every row without a download timestamp back through the
// queue, admission filters included.
func (s *syncState) queuePending() error {
	pending, err := s.engine.store.ListPending()
	if err != nil {
		return fmt.Errorf("failed to list pending media: %w", err)
	}

	var queued, skipped int
	for _, row := range pending {
		if s.queue.AddItem(row.Media(), scheduler.PriorityDownload) {
			queued++
		} else {
			skipped++
		}
	}

	s.mu.Lock()
	s.queued += queued
	s.skipped += skipped
	s.mu.Unlock()

	s.engine.sendProgress(s.progress, pendingQueuedUpdate(queued, skipped))
	return nil
}

// scheduleDownload submits one media download at download priority, retried
// per the engine policy. Permanent rejections are captured outside the retry
// loop so a stale or deleted item cannot burn the whole schedule.
func (s *syncState) scheduleDownload(item models.MediaItem) {
	s.wg.Add(1)

	var permanent error
	attempt := backoff.Retry(s.engine.retry, func(ctx context.Context) (string, error) {
		path, err := s.engine.downloadItem(ctx, s.albumID, item)
		if err != nil && isPermanentFailure(err) {
			permanent = err
			return "", nil
		}
		return path, err
	})

	scheduler.Process(s.sched, scheduler.PriorityDownload, func(ctx context.Context) (string, error) {
		defer s.wg.Done()

		path, err := attempt(ctx)
		if err == nil && permanent != nil {
			err = permanent
		}
		if err != nil {
			step, total := s.recordFailure(item, err)
			s.engine.sendProgress(s.progress, downloadFailedUpdate(step, total, item, err))
			return "", err
		}

		step, total := s.recordDownload()
		s.engine.sendProgress(s.progress, downloadedUpdate(step, total, item))
		return path, nil
	})
}

func (s *syncState) recordDownload() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloaded++
	return s.downloaded + s.failed, s.queued
}

func (s *syncState) recordFailure(item models.MediaItem, err error) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failures = append(s.failures, ItemResult{Item: item, Error: err})
	return s.downloaded + s.failed, s.queued
}

func (s *syncState) recordIndexError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexErr == nil {
		s.indexErr = err
	}
}

func (s *syncState) firstIndexError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexErr
}

func (s *syncState) result() *SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SyncResult{
		ItemsIndexed:    s.indexed,
		ItemsQueued:     s.queued,
		ItemsSkipped:    s.skipped,
		ItemsDownloaded: s.downloaded,
		ItemsFailed:     s.failed,
		Failures:        append([]ItemResult(nil), s.failures...),
	}
}

// downloadItem streams one media item to its destination file and marks the
// row downloaded. A failed write removes the partial file.
func (e *LibraryEngine) downloadItem(ctx context.Context, albumID string, item models.MediaItem) (string, error) {
	path := e.destinationPath(albumID, item)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	written, err := e.service.Download(ctx, item, f)
	closeErr := f.Close()
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	e.logger.Debug("downloaded media item", "media_id", item.ID, "path", path, "bytes", written)

	entity, err := e.store.GetByMediaID(item.ID)
	if err != nil {
		e.logger.Warn("downloaded item missing from store", "media_id", item.ID, "error", err)
		return path, nil
	}
	if err := e.store.MarkDownloaded(entity.ID(), path, time.Now()); err != nil {
		e.logger.Warn("failed to mark item downloaded", "media_id", item.ID, "error", err)
	}
	return path, nil
}

// destinationPath lays files out under the download directory: album runs get
// an album subdirectory, library runs a year/month tree from the capture time.
func (e *LibraryEngine) destinationPath(albumID string, item models.MediaItem) string {
	name := shared.SanitizeFilename(item.Filename, item.ID)
	dir := e.downloadDir
	switch {
	case albumID != "":
		dir = filepath.Join(dir, shared.SanitizeFilename(albumID, "album"))
	case !item.CreationTime.IsZero():
		dir = filepath.Join(dir, item.CreationTime.Format("2006"), item.CreationTime.Format("01"))
	}
	return filepath.Join(dir, name)
}

// isPermanentFailure reports download errors another attempt cannot fix: bad
// media records and 4xx rejections. Rate limits and server errors map to
// ErrServiceUnavailable and stay retryable.
func isPermanentFailure(err error) bool {
	return errors.Is(err, shared.ErrDownloadFailed)
}
