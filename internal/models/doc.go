// Package models defines the domain types shared by the stream grid components.
//
// The package contains two categories of types:
//
// 1. Grid state: values the user edits directly
//   - [Platform] : streaming service an entry plays from
//   - [StreamEntry] : one tile of the grid (platform + username)
//
// 2. Twitch data: values fetched from or persisted for the Twitch API
//   - [UserProfile] : the signed-in viewer, stored as JSON in durable storage
//   - [SearchRecord] : one fired channel search, kept for history
//
// Persistence interfaces live beside the types so repositories and in-memory fakes share a contract.
package models
