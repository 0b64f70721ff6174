// Package registry owns the ordered list of stream entries shown in the grid.
//
// The registry always holds at least one entry. IDs are v4 UUIDs assigned on add and never reused.
// Listeners registered with [Registry.OnChange] receive a snapshot after every mutation.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/repositories"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// Editable fields accepted by [Registry.Update].
const (
	FieldPlatform = "platform"
	FieldUsername = "username"
)

// Listener receives the entry list after a mutation.
type Listener func(entries []models.StreamEntry)

// Registry is a mutex-guarded ordered list of [models.StreamEntry].
type Registry struct {
	mu        sync.RWMutex
	entries   []models.StreamEntry
	newID     func() string
	listeners []Listener
}

// Option configures a [Registry].
type Option func(*Registry)

// WithIDFunc replaces the ID generator. IDs it returns must be unique.
func WithIDFunc(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates a registry seeded with a single blank Twitch entry.
func New(opts ...Option) *Registry {
	r := &Registry{newID: shared.GenerateID}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = []models.StreamEntry{{ID: r.newID(), Platform: models.PlatformTwitch}}
	return r
}

// OnChange registers fn to be called after every successful mutation.
func (r *Registry) OnChange(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// List returns a copy of the entries in display order.
func (r *Registry) List() []models.StreamEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Get returns the entry with id.
func (r *Registry) Get(id string) (models.StreamEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.StreamEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}
	return r.entries[i], nil
}

// Add appends a new entry and returns it.
func (r *Registry) Add(platform models.Platform, username string) models.StreamEntry {
	r.mu.Lock()
	entry := models.StreamEntry{ID: r.newID(), Platform: platform, Username: username}
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	r.notify()
	return entry
}

// Remove deletes the entry with id. The last remaining entry cannot be removed.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	i := r.indexOf(id)
	switch {
	case i < 0:
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	case len(r.entries) == 1:
		r.mu.Unlock()
		return shared.ErrLastEntry
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	r.mu.Unlock()

	r.notify()
	return nil
}

// Update sets one field of the entry with id in place and returns the updated entry.
func (r *Registry) Update(id, field, value string) (models.StreamEntry, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return models.StreamEntry{}, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}

	switch field {
	case FieldPlatform:
		r.entries[i].Platform = models.Platform(value)
	case FieldUsername:
		r.entries[i].Username = value
	default:
		r.mu.Unlock()
		return models.StreamEntry{}, fmt.Errorf("%w: %q", shared.ErrUnknownField, field)
	}
	entry := r.entries[i]
	r.mu.Unlock()

	r.notify()
	return entry, nil
}

// SetUsername is shorthand for Update(id, FieldUsername, value).
func (r *Registry) SetUsername(id, value string) (models.StreamEntry, error) {
	return r.Update(id, FieldUsername, value)
}

// Replace swaps the whole list, used when restoring a saved grid.
//
// Entries without an ID get a fresh one; an empty list or duplicate IDs are rejected.
func (r *Registry) Replace(entries []models.StreamEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: grid needs at least one entry", shared.ErrInvalidInput)
	}

	next := slices.Clone(entries)
	seen := make(map[string]bool, len(next))

	r.mu.Lock()
	for i := range next {
		if next[i].ID == "" {
			next[i].ID = r.newID()
		}
		if seen[next[i].ID] {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", shared.ErrDuplicateEntry, next[i].ID)
		}
		seen[next[i].ID] = true
	}
	r.entries = next
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.entries, func(e models.StreamEntry) bool { return e.ID == id })
}

func (r *Registry) notify() {
	r.mu.RLock()
	snapshot := slices.Clone(r.entries)
	listeners := slices.Clone(r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Load restores a saved grid from store. It reports false when nothing was saved.
func (r *Registry) Load(ctx context.Context, store models.KeyValueStore) (bool, error) {
	var saved []models.StreamEntry
	found, err := repositories.LoadJSON(ctx, store, repositories.KeyStreamEntries, &saved)
	if err != nil || !found {
		return false, err
	}
	if err := r.Replace(saved); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes the current grid to store.
func (r *Registry) Save(ctx context.Context, store models.KeyValueStore) error {
	return repositories.SaveJSON(ctx, store, repositories.KeyStreamEntries, r.List())
}
