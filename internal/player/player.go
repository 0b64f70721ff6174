// Package player turns grid entries into embeddable player URLs and picks the grid column count.
//
// All functions are pure string construction. Usernames are inserted verbatim; no validation or escaping is
// applied because the embedding hosts accept what the user typed.
package player

import (
	"fmt"

	"github.com/desertthunder/streamgrid/internal/models"
)

// youTubeVideoIDLength is the length of a YouTube video ID. Any other length is treated as a channel.
const youTubeVideoIDLength = 11

// EmbedURL builds the iframe source for entry.
//
// parentHost is the hostname the page is served from; the Twitch player refuses to load without it.
// Returns "" for a blank username or an unknown platform.
func EmbedURL(entry models.StreamEntry, parentHost string) string {
	if entry.Blank() {
		return ""
	}

	u := entry.Username
	switch entry.Platform {
	case models.PlatformTwitch:
		return fmt.Sprintf("https://player.twitch.tv/?channel=%s&parent=%s", u, parentHost)
	case models.PlatformYouTube:
		if len(u) == youTubeVideoIDLength {
			return fmt.Sprintf("https://www.youtube.com/embed/%s?autoplay=1", u)
		}
		return fmt.Sprintf("https://www.youtube.com/embed/live_stream?channel=%s&autoplay=1", u)
	case models.PlatformKick:
		return fmt.Sprintf("https://player.kick.com/%s", u)
	default:
		return ""
	}
}

// Columns returns the grid column count for count tiles: 1, 2, 2 for three or four, then 3.
func Columns(count int) int {
	switch {
	case count <= 1:
		return 1
	case count <= 4:
		return 2
	default:
		return 3
	}
}

// Placeholder is the input hint shown in an entry's username field.
func Placeholder(p models.Platform) string {
	switch p {
	case models.PlatformYouTube:
		return "Video ID or @handle"
	default:
		return "Channel name"
	}
}

// EmptyPrompt is the text shown in a tile that has nothing to embed.
func EmptyPrompt(p models.Platform) string {
	return fmt.Sprintf("Enter a %s channel name", p)
}

// GuideLine is one row of the quick guide.
type GuideLine struct {
	Platform models.Platform
	Text     string
}

// QuickGuide explains what each platform expects as a username.
func QuickGuide() []GuideLine {
	return []GuideLine{
		{Platform: models.PlatformTwitch, Text: `Enter the channel name (e.g., "shroud")`},
		{Platform: models.PlatformYouTube, Text: "Enter the video ID (11 characters) or @handle for live streams"},
		{Platform: models.PlatformKick, Text: "Enter the channel name"},
	}
}

// Tile is an entry paired with what the grid should render for it.
type Tile struct {
	Entry  models.StreamEntry `json:"entry"`
	URL    string             `json:"url"`
	Prompt string             `json:"prompt,omitempty"`
	Title  string             `json:"title"`
}

// Layout is a rendered grid.
type Layout struct {
	Columns int    `json:"columns"`
	Tiles   []Tile `json:"tiles"`
}

// BuildLayout resolves every entry in display order.
func BuildLayout(entries []models.StreamEntry, parentHost string) Layout {
	tiles := make([]Tile, 0, len(entries))
	for _, e := range entries {
		t := Tile{Entry: e, URL: EmbedURL(e, parentHost), Title: fmt.Sprintf("%s - %s", e.Platform, e.Username)}
		if t.URL == "" {
			t.Prompt = EmptyPrompt(e.Platform)
		}
		tiles = append(tiles, t)
	}
	return Layout{Columns: Columns(len(entries)), Tiles: tiles}
}
