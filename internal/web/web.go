// Package web serves the stream grid page and the JSON and websocket API it drives.
//
// # Routes
//
//	GET    /                                  grid page
//	GET    /static/*                          scripts and styles
//	GET    /api/streams                       entries in display order
//	POST   /api/streams                       add an entry
//	PATCH  /api/streams/{id}                  edit one field of an entry
//	DELETE /api/streams/{id}                  remove an entry (never the last one)
//	GET    /api/streams/{id}/suggestions      current channel suggestions
//	POST   /api/streams/{id}/suggestions/select  pick a suggestion
//	GET    /api/layout                        column count and resolved embeds
//	GET    /api/session                       sign-in state
//	POST   /api/session/callback              hand off an implicit-grant fragment
//	POST   /api/session/signout               clear the sign-in
//	GET    /auth/twitch                       redirect to the Twitch authorize page
//	GET    /ws                                websocket event stream
//	GET    /metrics                           Prometheus scrape
//
// # Events
//
// Registry, session and search changes are pushed to every page over /ws as {"type", "data"} envelopes
// ("streams", "session", "suggestions"). Pages and /api/layout embed Twitch with the request's hostname as parent;
// websocket layouts carry the configured parent and the page rewrites it to its own hostname.
// Pages send {"type":"username","entry_id","value"} while typing, which updates the entry and schedules a
// debounced search.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/streamgrid/internal/metrics"
	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/registry"
	"github.com/desertthunder/streamgrid/internal/search"
	"github.com/desertthunder/streamgrid/internal/server"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Options wires an [App] to the shared grid components.
type Options struct {
	Registry   *registry.Registry
	Session    *session.Session
	Searcher   *search.Searcher
	Hub        *Hub
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	ParentHost string
}

// App owns the HTTP surface of a running grid.
type App struct {
	reg      *registry.Registry
	sess     *session.Session
	searcher *search.Searcher
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *log.Logger
	parent   string
}

// NewApp subscribes the hub to registry and session changes and returns the app.
func NewApp(opts Options) *App {
	a := &App{
		reg:      opts.Registry,
		sess:     opts.Session,
		searcher: opts.Searcher,
		hub:      opts.Hub,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		parent:   opts.ParentHost,
	}
	if a.logger == nil {
		a.logger = shared.NewLogger(nil)
	}
	if a.hub == nil {
		a.hub = NewHub(a.logger, a.metrics)
	}
	if a.parent == "" {
		a.parent = "localhost"
	}

	a.reg.OnChange(func(entries []models.StreamEntry) {
		a.metrics.SetEntries(len(entries))
		a.hub.Broadcast(Event{Type: EventStreams, Data: player.BuildLayout(entries, a.parent)})
	})
	a.sess.OnChange(func(snap session.Snapshot) {
		a.hub.Broadcast(Event{Type: EventSession, Data: snap})
	})
	a.hub.SetIncoming(a.handleIncoming)
	a.hub.SetGreeting(a.greeting)
	return a
}

// Handler builds the router with logging, recovery and metrics middleware.
func (a *App) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Recover(a.logger), server.RequestLogger(a.logger), server.Instrument(a.metrics))

	static, _ := fs.Sub(staticFiles, "static")

	r.HandleFunc(http.MethodGet, "/{$}", a.handleIndex)
	r.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.HandleFunc(http.MethodGet, "/api/streams", a.handleListStreams)
	r.HandleFunc(http.MethodPost, "/api/streams", a.handleAddStream)
	r.HandleFunc(http.MethodPatch, "/api/streams/{id}", a.handleUpdateStream)
	r.HandleFunc(http.MethodDelete, "/api/streams/{id}", a.handleRemoveStream)
	r.HandleFunc(http.MethodGet, "/api/streams/{id}/suggestions", a.handleSuggestions)
	r.HandleFunc(http.MethodPost, "/api/streams/{id}/suggestions/select", a.handleSelectSuggestion)
	r.HandleFunc(http.MethodGet, "/api/layout", a.handleLayout)

	r.HandleFunc(http.MethodGet, "/api/session", a.handleSession)
	r.HandleFunc(http.MethodPost, "/api/session/callback", a.handleCallback)
	r.HandleFunc(http.MethodPost, "/api/session/signout", a.handleSignOut)
	r.HandleFunc(http.MethodGet, "/auth/twitch", a.handleAuthorize)

	r.Handle(http.MethodGet, "/ws", a.hub)
	if a.metrics != nil {
		r.Handle(http.MethodGet, "/metrics", a.metrics.Handler(func() { a.metrics.SetEntries(a.reg.Len()) }))
	}
	return r
}

// Close disconnects websocket clients.
func (a *App) Close() {
	a.hub.Close()
}

// EditUsername stores value on the entry and schedules a channel search for Twitch entries.
func (a *App) EditUsername(id, value string) (models.StreamEntry, error) {
	entry, err := a.reg.SetUsername(id, value)
	if err != nil {
		return models.StreamEntry{}, err
	}

	if entry.Platform == models.PlatformTwitch {
		a.searcher.Schedule(id, value)
	} else {
		a.searcher.Cancel(id)
	}
	return entry, nil
}

func (a *App) handleIncoming(_ context.Context, msg Incoming) {
	switch msg.Type {
	case "username":
		if _, err := a.EditUsername(msg.EntryID, msg.Value); err != nil {
			a.logger.Debug("websocket username edit failed", "entry", msg.EntryID, "error", err)
		}
	default:
		a.logger.Debug("ignoring websocket message", "type", msg.Type)
	}
}

func (a *App) greeting() []Event {
	events := []Event{
		{Type: EventStreams, Data: a.layoutFor(a.parent)},
		{Type: EventSession, Data: a.sess.Snapshot()},
	}
	for id, list := range a.searcher.All() {
		events = append(events, Event{Type: EventSuggestions, Data: SuggestionsPayload{EntryID: id, Suggestions: list}})
	}
	return events
}

func (a *App) layoutFor(parent string) player.Layout {
	return player.BuildLayout(a.reg.List(), parent)
}

// pageHost returns the hostname the page was requested on. Twitch only plays embeds whose parent matches it.
func (a *App) pageHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return a.parent
	}
	return host
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrLastEntry), errors.Is(err, shared.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnknownField), errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrUnknownPlatform):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAuthFailed), errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
