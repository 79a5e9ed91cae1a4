package ui

import (
	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
	"github.com/harvmaster/GooglePhotosDownloader/internal/tasks"
)

// Messages delivered to [Model.Update]. Each long-running command resolves to
// exactly one of these.

// albumsFetchedMsg carries the album listing fetched at startup.
type albumsFetchedMsg struct {
	albums []models.Album
	err    error
}

// progressMsg relays one engine progress update into the event loop.
type progressMsg tasks.ProgressUpdate

// syncCompleteMsg reports the final outcome once the engine returns and the
// progress channel drains.
type syncCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}
