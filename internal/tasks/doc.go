// Package tasks orchestrates library indexing and media downloads with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Sync] : Full index plus download
//     - Pages through the library (or one album) at indexing priority
//     - Caches every discovered item and queues the ones not yet downloaded
//     - Downloads queued items concurrently while later pages still load
//
//  2. [SyncEngine.Index] : Metadata only
//     - Pages and caches without downloading anything
//
//  3. [SyncEngine.Download] : Drain pending rows
//     - Re-queues every cached item without a download timestamp
//     - Useful after an index-only run or an interrupted sync
//
// [LibraryEngine.ExportAlbums] additionally exports album listings to
// portable formats (JSON, CSV, Markdown, plain text) with a JSON manifest
// summarizing the batch.
//
// # Progress Reporting
//
// All operations use non-blocking channel sends for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Media Caching
//
// The [MediaCacher] interface enables metadata persistence during indexing.
// Cache errors are logged and skipped to avoid disrupting a run.
//
// # Scheduling
//
// Each run builds its own queue and scheduler pair. Listing pages run at
// priority 0 and downloads at priority 1, so discovery stays ahead of the
// slower transfers while both share one concurrency bound. Downloads retry
// on transient failures per the engine's backoff policy; permanent 4xx
// rejections fail the item immediately.
//
// # Implementation
//
// [LibraryEngine] implements [SyncEngine] with dependencies on:
//   - [services.Service] : Google Photos API client
//   - [MediaStore] : download state (repositories.MediaRepository)
//   - [MediaCacher] : metadata persistence (repositories.MediaCacheAdapter)
//   - [RunRecorder] : run history (repositories.SyncRunRepository)
package tasks
