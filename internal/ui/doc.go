// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for syncing Google Photos locally:
//  1. [AlbumListView] : Browse albums, led by a synthetic entire-library entry
//  2. [ConfirmView] : Confirm the selected sync target
//  3. [SyncView] : Monitor real-time indexing and download progress
//  4. [ResultView] : Display run counts and per-item failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, providing non-blocking status reporting during long runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
