package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/streamgrid/internal/player"
)

var _ list.Item = entryItem{}

// entryItem wraps a [player.Tile] to implement [list.Item].
type entryItem struct {
	tile player.Tile
}

func (i entryItem) FilterValue() string { return i.tile.Entry.Username }

func (i entryItem) Title() string {
	name := i.tile.Entry.Username
	if i.tile.Entry.Blank() {
		name = styles.help.Render("(empty)")
	}
	return fmt.Sprintf("%s • %s", platformTag(i.tile.Entry.Platform), name)
}

func (i entryItem) Description() string {
	if i.tile.URL == "" {
		return i.tile.Prompt
	}
	return i.tile.URL
}

func tileItems(layout player.Layout) []list.Item {
	items := make([]list.Item, len(layout.Tiles))
	for i, tile := range layout.Tiles {
		items[i] = entryItem{tile: tile}
	}
	return items
}
