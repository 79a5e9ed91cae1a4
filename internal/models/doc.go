// Package models defines domain entities and persistence interfaces for the
// Google Photos downloader.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing library API data
//   - [MediaItem] : Photo or video metadata with its short-lived download URL
//   - [Album] : Basic album metadata
//   - [MediaPage] : One listing page with its continuation token
//   - [AlbumExport] : Album with complete media listing
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedMedia] : Indexed media items with download state and local path
//   - [PersistedAlbum] : Cached album listings
//   - [SyncRun] : Indexing and download runs tracking progress and results
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
