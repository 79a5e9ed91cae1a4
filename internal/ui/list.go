package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/harvmaster/GooglePhotosDownloader/internal/models"
)

var _ list.Item = albumItem{}

// albumItem wraps [models.Album] to implement [list.Item]. The entire flag
// marks the synthetic first entry that targets the whole library.
type albumItem struct {
	album  models.Album
	entire bool
}

// entireLibraryItem is the selectable pseudo-album for a full library sync.
func entireLibraryItem() albumItem {
	return albumItem{album: models.Album{Title: "Entire library"}, entire: true}
}

func (i albumItem) FilterValue() string { return i.album.Title }
func (i albumItem) Title() string       { return i.album.Title }
func (i albumItem) Description() string {
	if i.entire {
		return "every item in your Google Photos library"
	}
	if i.album.ItemCount == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", i.album.ItemCount)
}
