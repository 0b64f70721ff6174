// package models defines the data model for the stream grid
package models

import (
	"context"
	"strings"
	"time"
)

// Platform identifies the service a [StreamEntry] embeds from.
//
// Values outside the known set are representable because they arrive from user input; they resolve to no embed.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
	PlatformKick    Platform = "kick"
)

// Platforms lists the known platforms in selector order.
func Platforms() []Platform {
	return []Platform{PlatformTwitch, PlatformYouTube, PlatformKick}
}

// ParsePlatform normalizes s, reporting whether it names a known platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Known()
}

// Known reports whether p is one of [Platforms].
func (p Platform) Known() bool {
	switch p {
	case PlatformTwitch, PlatformYouTube, PlatformKick:
		return true
	}
	return false
}

// Title returns the display name ("Twitch", "YouTube", "Kick").
func (p Platform) Title() string {
	switch p {
	case PlatformTwitch:
		return "Twitch"
	case PlatformYouTube:
		return "YouTube"
	case PlatformKick:
		return "Kick"
	}
	return string(p)
}

func (p Platform) String() string { return string(p) }

// StreamEntry is one tile in the grid. ID is unique for the lifetime of the registry and list order is display order.
type StreamEntry struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Username string   `json:"username"`
}

// Blank reports whether the entry has no username yet. Whitespace counts as a username.
func (e StreamEntry) Blank() bool {
	return e.Username == ""
}

// UserProfile is the signed-in Twitch viewer. JSON tags match the Helix users payload.
type UserProfile struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// SearchRecord is one channel search that reached the Twitch API.
type SearchRecord struct {
	ID          int64     `json:"id"`
	EntryID     string    `json:"entry_id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	SearchedAt  time.Time `json:"searched_at"`
}

// KeyValueStore is durable string storage keyed by name. Writes are last-write-wins.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error) // Get returns shared.ErrKeyNotFound when key is absent
	Set(ctx context.Context, key, value string) error    // Set inserts or replaces key
	Delete(ctx context.Context, key string) error        // Delete removes key; absent keys are not an error
	Keys(ctx context.Context) ([]string, error)          // Keys lists stored keys in ascending order
}

// SearchHistory records fired channel searches.
type SearchHistory interface {
	Record(ctx context.Context, rec SearchRecord) error            // Record appends rec, stamping SearchedAt when zero
	Recent(ctx context.Context, limit int) ([]SearchRecord, error) // Recent returns the newest records first
}
