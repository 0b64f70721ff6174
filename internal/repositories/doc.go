// Package repositories implements persistence for the stream grid.
//
// Key Implementations:
//   - [KeyValueRepository] : SQLite-backed durable key-value storage (session token, profile, saved grid)
//   - [MemoryStore] : in-process [models.KeyValueStore] for tests and ephemeral runs
//   - [SearchHistoryRepository] : log of channel searches that reached the Twitch API
//
// Typed helpers ([LoadJSON], [SaveJSON]) store structured values under a single key.
package repositories
