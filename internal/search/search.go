// Package search debounces channel lookups per grid entry.
//
// Each entry owns at most one pending timer in the [Searcher]. Scheduling again for the same entry stops the
// previous timer, so only the newest text is ever sent. Every schedule, select and cancel stamps the entry with a
// new sequence number; a response is applied only if its stamp is still current, so a slow reply for an old
// query never overwrites newer state.
package search

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/streamgrid/internal/metrics"
	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/shared"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLimit    = 5
)

// ChannelSearcher performs one channel-search call.
type ChannelSearcher interface {
	SearchChannels(ctx context.Context, appToken, query string, limit int) ([]string, error)
}

// EntryUpdater writes a chosen suggestion back to the grid.
type EntryUpdater interface {
	SetUsername(id, value string) (models.StreamEntry, error)
}

// TokenSource returns the current app token, or "" when none is available.
type TokenSource func() string

// ChangeFunc receives an entry's suggestions whenever they change. An empty slice means cleared.
type ChangeFunc func(entryID string, suggestions []string)

// Searcher owns the per-entry timers, sequence stamps and suggestion lists.
type Searcher struct {
	api      ChannelSearcher
	token    TokenSource
	entries  EntryUpdater
	clock    clockwork.Clock
	debounce time.Duration
	limit    int
	logger   *log.Logger
	metrics  *metrics.Metrics
	history  models.SearchHistory
	onChange ChangeFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	next        uint64
	timers      map[string]clockwork.Timer
	stamps      map[string]uint64
	suggestions map[string][]string
}

// Option configures a [Searcher].
type Option func(*Searcher)

// WithClock replaces the real clock, typically with a clockwork fake in tests.
func WithClock(c clockwork.Clock) Option { return func(s *Searcher) { s.clock = c } }

// WithDebounce sets the quiet period before a search fires.
func WithDebounce(d time.Duration) Option { return func(s *Searcher) { s.debounce = d } }

// WithLimit caps how many logins are kept per entry.
func WithLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger for failed searches.
func WithLogger(l *log.Logger) Option { return func(s *Searcher) { s.logger = l } }

// WithMetrics enables search lifecycle counters.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Searcher) { s.metrics = m } }

// WithHistory records every search that reaches the API.
func WithHistory(h models.SearchHistory) Option { return func(s *Searcher) { s.history = h } }

// OnChange registers the suggestion change callback. It runs outside the searcher's lock.
func OnChange(fn ChangeFunc) Option { return func(s *Searcher) { s.onChange = fn } }

// New creates a [Searcher].
func New(api ChannelSearcher, token TokenSource, entries EntryUpdater, opts ...Option) *Searcher {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Searcher{
		api:         api,
		token:       token,
		entries:     entries,
		clock:       clockwork.NewRealClock(),
		debounce:    DefaultDebounce,
		limit:       DefaultLimit,
		logger:      shared.NewLogger(nil),
		ctx:         ctx,
		cancel:      cancel,
		timers:      make(map[string]clockwork.Timer),
		stamps:      make(map[string]uint64),
		suggestions: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule (re)starts the debounce timer for entryID with text.
//
// Empty text or a missing app token clears the entry's suggestions immediately without a call.
func (s *Searcher) Schedule(entryID, text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.stopLocked(entryID)
	stamp := s.stampLocked(entryID)

	if text == "" || s.token() == "" {
		changed := s.clearLocked(entryID)
		s.mu.Unlock()

		s.metrics.Search(metrics.SearchCleared)
		if changed {
			s.emit(entryID, nil)
		}
		return
	}

	s.timers[entryID] = s.clock.AfterFunc(s.debounce, func() { s.fire(entryID, text, stamp) })
	s.mu.Unlock()

	s.metrics.Search(metrics.SearchScheduled)
}

// fire runs the search for a timer that was not superseded.
func (s *Searcher) fire(entryID, text string, stamp uint64) {
	s.mu.Lock()
	if s.closed || s.stamps[entryID] != stamp {
		s.mu.Unlock()
		return
	}
	delete(s.timers, entryID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.metrics.Search(metrics.SearchFired)
	logins, err := s.api.SearchChannels(s.ctx, s.token(), text, s.limit)
	if len(logins) > s.limit {
		logins = logins[:s.limit]
	}
	s.record(entryID, text, len(logins))
	if err != nil {
		s.metrics.Search(metrics.SearchFailed)
		s.logger.Warn("channel search failed", "entry", entryID, "query", text, "error", err)
		return
	}

	s.mu.Lock()
	if s.closed || s.stamps[entryID] != stamp {
		s.mu.Unlock()
		s.metrics.Search(metrics.SearchStale)
		s.logger.Debug("discarding stale search response", "entry", entryID, "query", text)
		return
	}
	s.suggestions[entryID] = slices.Clone(logins)
	s.mu.Unlock()

	s.metrics.Search(metrics.SearchApplied)
	s.emit(entryID, logins)
}

// record logs a fired search to history. Failed calls are recorded with zero results.
func (s *Searcher) record(entryID, query string, results int) {
	if s.history == nil || s.ctx.Err() != nil {
		return
	}
	rec := models.SearchRecord{EntryID: entryID, Query: query, ResultCount: results, SearchedAt: s.clock.Now().UTC()}
	if err := s.history.Record(s.ctx, rec); err != nil {
		s.logger.Warn("failed to record search", "error", err)
	}
}

// Select writes value to the entry's username and clears its suggestions.
func (s *Searcher) Select(entryID, value string) (models.StreamEntry, error) {
	entry, err := s.entries.SetUsername(entryID, value)
	if err != nil {
		return models.StreamEntry{}, err
	}
	s.reset(entryID)
	return entry, nil
}

// Cancel drops the entry's pending timer and suggestions. Used when the entry is removed.
func (s *Searcher) Cancel(entryID string) {
	s.reset(entryID)

	s.mu.Lock()
	delete(s.stamps, entryID)
	s.mu.Unlock()
}

func (s *Searcher) reset(entryID string) {
	s.mu.Lock()
	s.stopLocked(entryID)
	s.stampLocked(entryID)
	changed := s.clearLocked(entryID)
	s.mu.Unlock()

	if changed {
		s.emit(entryID, nil)
	}
}

// Suggestions returns a copy of the entry's current suggestions.
func (s *Searcher) Suggestions(entryID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.suggestions[entryID])
}

// All returns a copy of every non-empty suggestion list keyed by entry ID.
func (s *Searcher) All() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.suggestions))
	for id, list := range s.suggestions {
		out[id] = slices.Clone(list)
	}
	return out
}

// Pending reports whether entryID has a timer waiting to fire.
func (s *Searcher) Pending(entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[entryID]
	return ok
}

// Close stops every pending timer, cancels in-flight calls and waits for them to return.
func (s *Searcher) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id := range s.timers {
		s.stopLocked(id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Searcher) stopLocked(entryID string) {
	if t, ok := s.timers[entryID]; ok {
		t.Stop()
		delete(s.timers, entryID)
	}
}

func (s *Searcher) stampLocked(entryID string) uint64 {
	s.next++
	s.stamps[entryID] = s.next
	return s.next
}

// clearLocked removes the entry's suggestions, reporting whether there were any.
func (s *Searcher) clearLocked(entryID string) bool {
	list, ok := s.suggestions[entryID]
	delete(s.suggestions, entryID)
	return ok && len(list) > 0
}

func (s *Searcher) emit(entryID string, suggestions []string) {
	if s.onChange == nil {
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	s.onChange(entryID, slices.Clone(suggestions))
}
