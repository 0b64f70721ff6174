// Package session holds the Twitch credentials for one running grid.
//
// The app token comes from the client-credentials grant and lives only in memory.
// The user token arrives in an implicit-grant URL fragment, is persisted with the viewer's profile,
// and is restored from storage on the next start without a network call.
//
// Failures during [Session.Start] are logged and swallowed: a missing app token leaves search inert
// and a failed callback leaves the viewer signed out. Nothing is retried.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"

	"github.com/desertthunder/streamgrid/internal/metrics"
	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/repositories"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// stateTTL bounds how long an issued authorize state stays redeemable.
const stateTTL = 10 * time.Minute

// Provider is the subset of the Twitch client a session needs.
type Provider interface {
	AppToken(ctx context.Context) (string, error)
	FetchUser(ctx context.Context, userToken string) (models.UserProfile, error)
	AuthorizeURL(state string) string
}

// Snapshot is the externally visible session state. Tokens are never included.
type Snapshot struct {
	HasAppToken bool                `json:"has_app_token"`
	SignedIn    bool                `json:"signed_in"`
	Profile     *models.UserProfile `json:"profile,omitempty"`
}

// Grant is the parsed implicit-grant fragment.
type Grant struct {
	AccessToken string
	Scope       string
	TokenType   string
	State       string
}

// ParseFragment reads an implicit-grant fragment ("#access_token=...&scope=...").
//
// ok is true only when both access_token and scope are present.
func ParseFragment(fragment string) (Grant, bool) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Grant{}, false
	}

	g := Grant{
		AccessToken: values.Get("access_token"),
		Scope:       values.Get("scope"),
		TokenType:   values.Get("token_type"),
		State:       values.Get("state"),
	}
	return g, g.AccessToken != "" && g.Scope != ""
}

// Session is safe for concurrent use.
type Session struct {
	provider Provider
	store    models.KeyValueStore
	logger   *log.Logger
	metrics  *metrics.Metrics
	clock    clockwork.Clock

	mu        sync.RWMutex
	appToken  string
	userToken string
	profile   *models.UserProfile
	states    map[string]time.Time
	listeners []func(Snapshot)
}

// Option configures a [Session].
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithMetrics enables sign-in and token failure counters.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }

// WithClock replaces the clock used to expire authorize states.
func WithClock(c clockwork.Clock) Option { return func(s *Session) { s.clock = c } }

// New creates a signed-out session backed by store.
func New(provider Provider, store models.KeyValueStore, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		store:    store,
		logger:   shared.NewLogger(nil),
		clock:    clockwork.NewRealClock(),
		states:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fetches the app token and resolves fragment concurrently, returning once both finish.
//
// An empty fragment restores the previous sign-in from storage.
func (s *Session) Start(ctx context.Context, fragment string) {
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := s.FetchAppToken(ctx); err != nil {
			s.logger.Error("failed to fetch app access token", "error", err)
		}
	})
	wg.Go(func() {
		if err := s.ResolveCallback(ctx, fragment); err != nil {
			s.logger.Error("failed to resolve twitch callback", "error", err)
		}
	})
	wg.Wait()
}

// FetchAppToken requests an app token and keeps it in memory. On failure the previous token is left as is.
func (s *Session) FetchAppToken(ctx context.Context) error {
	token, err := s.provider.AppToken(ctx)
	if err != nil {
		s.metrics.IncTokenFailures()
		return err
	}

	s.mu.Lock()
	s.appToken = token
	s.mu.Unlock()

	s.logger.Debug("app access token acquired")
	s.notify()
	return nil
}

// ResolveCallback signs in from an implicit-grant fragment, or restores from storage when the fragment
// carries no grant.
//
// A fragment carrying a state must match one issued by [Session.NewState]. When the profile fetch fails
// the token is discarded so the session stays signed out.
func (s *Session) ResolveCallback(ctx context.Context, fragment string) error {
	grant, ok := ParseFragment(fragment)
	if !ok {
		_, err := s.Restore(ctx)
		return err
	}

	if grant.State != "" && !s.consumeState(grant.State) {
		return fmt.Errorf("%w: unknown or expired state", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	s.userToken = grant.AccessToken
	s.mu.Unlock()

	if err := s.store.Set(ctx, repositories.KeyUserToken, grant.AccessToken); err != nil {
		s.logger.Warn("failed to persist user token", "error", err)
	}

	profile, err := s.provider.FetchUser(ctx, grant.AccessToken)
	if err != nil {
		s.clear(ctx)
		return fmt.Errorf("fetch user profile: %w", err)
	}

	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()

	if err := repositories.SaveJSON(ctx, s.store, repositories.KeyUserData, profile); err != nil {
		s.logger.Warn("failed to persist user profile", "error", err)
	}

	s.metrics.IncSignIns()
	s.logger.Info("signed in to twitch", "login", profile.Login)
	s.notify()
	return nil
}

// Restore loads the saved token and profile. Both must be present; it makes no network call.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.Get(ctx, repositories.KeyUserToken)
	if errors.Is(err, shared.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var profile models.UserProfile
	found, err := repositories.LoadJSON(ctx, s.store, repositories.KeyUserData, &profile)
	if err != nil || !found {
		return false, err
	}

	s.mu.Lock()
	s.userToken = token
	s.profile = &profile
	s.mu.Unlock()

	s.logger.Debug("restored twitch sign-in", "login", profile.Login)
	s.notify()
	return true, nil
}

// SignOut clears the user token and profile from memory and storage together.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}
	s.metrics.IncSignOuts()
	s.notify()
	return nil
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.userToken = ""
	s.profile = nil
	s.mu.Unlock()

	return errors.Join(
		s.store.Delete(ctx, repositories.KeyUserToken),
		s.store.Delete(ctx, repositories.KeyUserData),
	)
}

// NewState issues a single-use authorize state.
func (s *Session) NewState() string {
	state := shared.GenerateID()
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, issued := range s.states {
		if now.Sub(issued) > stateTTL {
			delete(s.states, k)
		}
	}
	s.states[state] = now
	return state
}

func (s *Session) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.states[state]
	delete(s.states, state)
	return ok && s.clock.Since(issued) <= stateTTL
}

// AuthorizeURL returns the Twitch authorize redirect with a fresh state.
func (s *Session) AuthorizeURL() string {
	return s.provider.AuthorizeURL(s.NewState())
}

// AppToken returns the in-memory app token or "".
func (s *Session) AppToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appToken
}

// UserToken returns the user token or "".
func (s *Session) UserToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToken
}

// Profile returns the signed-in profile.
func (s *Session) Profile() (models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.UserProfile{}, false
	}
	return *s.profile, true
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{HasAppToken: s.appToken != "", SignedIn: s.profile != nil}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// OnChange registers fn to receive a [Snapshot] after every state change.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify() {
	snap := s.Snapshot()

	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
