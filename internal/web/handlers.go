package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/registry"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
)

const maxBodyBytes = 16 << 10

// pageData feeds templates/index.html.
type pageData struct {
	Layout    player.Layout
	Session   session.Snapshot
	Guide     []player.GuideLine
	Platforms []platformOption
	Bootstrap bootstrap
}

type platformOption struct {
	Value       models.Platform `json:"value"`
	Title       string          `json:"title"`
	Placeholder string          `json:"placeholder"`
}

// bootstrap is embedded in the page as JSON for the script.
type bootstrap struct {
	Layout      player.Layout       `json:"layout"`
	Session     session.Snapshot    `json:"session"`
	Platforms   []platformOption    `json:"platforms"`
	Suggestions map[string][]string `json:"suggestions"`
}

type addStreamRequest struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
}

type updateStreamRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type selectRequest struct {
	Value string `json:"value"`
}

type callbackRequest struct {
	Fragment string `json:"fragment"`
}

func platformOptions() []platformOption {
	opts := make([]platformOption, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		opts = append(opts, platformOption{Value: p, Title: p.Title(), Placeholder: player.Placeholder(p)})
	}
	return opts
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	layout := a.layoutFor(a.pageHost(r))
	snap := a.sess.Snapshot()
	platforms := platformOptions()

	data := pageData{
		Layout:    layout,
		Session:   snap,
		Guide:     player.QuickGuide(),
		Platforms: platforms,
		Bootstrap: bootstrap{Layout: layout, Session: snap, Platforms: platforms, Suggestions: a.searcher.All()},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "index.html", data); err != nil {
		a.logger.Error("failed to render index", "error", err)
	}
}

func (a *App) handleListStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"streams": a.reg.List()})
}

func (a *App) handleAddStream(w http.ResponseWriter, r *http.Request) {
	var req addStreamRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	platform := models.PlatformTwitch
	if req.Platform != "" {
		p, ok := models.ParsePlatform(req.Platform)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, req.Platform).Error())
			return
		}
		platform = p
	}

	entry := a.reg.Add(platform, req.Username)
	writeJSON(w, http.StatusCreated, entry)
}

func (a *App) handleUpdateStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStreamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		entry models.StreamEntry
		err   error
	)
	switch req.Field {
	case registry.FieldUsername:
		entry, err = a.EditUsername(id, req.Value)
	case registry.FieldPlatform:
		p, ok := models.ParsePlatform(req.Value)
		if !ok {
			err = fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, req.Value)
			break
		}
		entry, err = a.reg.Update(id, registry.FieldPlatform, p.String())
		if err == nil && entry.Platform != models.PlatformTwitch {
			a.searcher.Cancel(id)
		}
	default:
		err = fmt.Errorf("%w: %q", shared.ErrUnknownField, req.Field)
	}

	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *App) handleRemoveStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.reg.Remove(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	a.searcher.Cancel(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.reg.Get(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	list := a.searcher.Suggestions(id)
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, SuggestionsPayload{EntryID: id, Suggestions: list})
}

func (a *App) handleSelectSuggestion(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := a.searcher.Select(r.PathValue("id"), req.Value)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *App) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.layoutFor(a.pageHost(r)))
}

func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sess.Snapshot())
}

func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := session.ParseFragment(req.Fragment); !ok {
		writeError(w, http.StatusBadRequest, "fragment has no access_token and scope")
		return
	}

	if err := a.sess.ResolveCallback(r.Context(), req.Fragment); err != nil {
		a.logger.Warn("twitch callback failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.sess.Snapshot())
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.sess.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.sess.Snapshot())
}

func (a *App) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.sess.AuthorizeURL(), http.StatusFound)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
