// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [MediaRepository] : Indexed media items with download state and local paths
//   - [AlbumRepository] : Album listing cache with library-ID lookups
//   - [SyncRunRepository] : Indexing and download run history with status tracking
//   - [MediaCacheAdapter] : Insert-time deduplication for the indexer
//
// Sequence numbers provide stable, human-readable ordering (e.g., media #42, album #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
