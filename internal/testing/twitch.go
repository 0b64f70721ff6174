package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// Credentials the fake accepts.
const (
	FakeClientID     = "test-client-id"
	FakeClientSecret = "test-client-secret"
	FakeAppToken     = "app-token"
	FakeUserToken    = "user-token"
)

// FakeTwitch is an httptest server standing in for id.twitch.tv and api.twitch.tv.
//
// Status fields force an error response from the matching endpoint when non-zero.
// Hooks run before the response is written and may block to simulate slow calls.
type FakeTwitch struct {
	Server *httptest.Server

	mu           sync.Mutex
	user         models.UserProfile
	channels     []string
	tokenStatus  int
	usersStatus  int
	searchStatus int
	onSearch     func(query string)
	onToken      func()

	tokenCalls  int
	usersCalls  int
	searchCalls int
	queries     []string
}

// NewFakeTwitch starts a fake closed at test cleanup.
func NewFakeTwitch(t *testing.T) *FakeTwitch {
	t.Helper()

	f := &FakeTwitch{
		user: models.UserProfile{
			ID:              "12345",
			Login:           "viewer",
			DisplayName:     "Viewer",
			ProfileImageURL: "https://static-cdn.jtvnw.net/viewer.png",
		},
		channels: []string{"shroud", "shroudy", "shroud_fan", "shroudclips", "shroudtv", "shroudlive", "summit1g"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", f.handleToken)
	mux.HandleFunc("GET /helix/users", f.handleUsers)
	mux.HandleFunc("GET /helix/search/channels", f.handleSearch)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns credentials and endpoints pointing at the fake.
func (f *FakeTwitch) Config() shared.TwitchConfig {
	return shared.TwitchConfig{
		ClientID:     FakeClientID,
		ClientSecret: FakeClientSecret,
		RedirectURI:  "http://localhost:3000/",
		TokenURL:     f.Server.URL + "/oauth2/token",
		AuthorizeURL: f.Server.URL + "/oauth2/authorize",
		APIBaseURL:   f.Server.URL + "/helix",
	}
}

func (f *FakeTwitch) SetUser(u models.UserProfile) { f.mu.Lock(); f.user = u; f.mu.Unlock() }
func (f *FakeTwitch) User() models.UserProfile     { f.mu.Lock(); defer f.mu.Unlock(); return f.user }
func (f *FakeTwitch) SetChannels(logins ...string) { f.mu.Lock(); f.channels = logins; f.mu.Unlock() }
func (f *FakeTwitch) FailToken(status int)         { f.mu.Lock(); f.tokenStatus = status; f.mu.Unlock() }
func (f *FakeTwitch) FailUsers(status int)         { f.mu.Lock(); f.usersStatus = status; f.mu.Unlock() }
func (f *FakeTwitch) FailSearch(status int)        { f.mu.Lock(); f.searchStatus = status; f.mu.Unlock() }

// OnToken installs a hook called before each app token response.
func (f *FakeTwitch) OnToken(fn func()) { f.mu.Lock(); f.onToken = fn; f.mu.Unlock() }

// OnSearch installs a hook called with each search query before responding.
func (f *FakeTwitch) OnSearch(fn func(query string)) { f.mu.Lock(); f.onSearch = fn; f.mu.Unlock() }

func (f *FakeTwitch) TokenCalls() int  { f.mu.Lock(); defer f.mu.Unlock(); return f.tokenCalls }
func (f *FakeTwitch) UsersCalls() int  { f.mu.Lock(); defer f.mu.Unlock(); return f.usersCalls }
func (f *FakeTwitch) SearchCalls() int { f.mu.Lock(); defer f.mu.Unlock(); return f.searchCalls }

// Queries returns every search query received, in arrival order.
func (f *FakeTwitch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *FakeTwitch) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	status, hook := f.tokenStatus, f.onToken
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	if status != 0 {
		writeJSON(w, status, map[string]any{"status": status, "message": "forced failure"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "message": "bad form"})
		return
	}
	if r.PostForm.Get("client_id") != FakeClientID ||
		r.PostForm.Get("client_secret") != FakeClientSecret ||
		r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "message": "invalid client"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": FakeAppToken,
		"expires_in":   5011271,
		"token_type":   "bearer",
	})
}

func (f *FakeTwitch) handleUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.usersCalls++
	status, user := f.usersStatus, f.user
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": http.StatusText(status), "status": status, "message": "forced failure"})
		return
	}
	if !authorized(r, FakeUserToken) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized", "status": 401, "message": "Invalid OAuth token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": []models.UserProfile{user}})
}

func (f *FakeTwitch) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	first, _ := strconv.Atoi(r.URL.Query().Get("first"))

	f.mu.Lock()
	f.searchCalls++
	f.queries = append(f.queries, query)
	status, channels, hook := f.searchStatus, f.channels, f.onSearch
	f.mu.Unlock()

	if hook != nil {
		hook(query)
	}

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": http.StatusText(status), "status": status, "message": "forced failure"})
		return
	}
	if !authorized(r, FakeAppToken) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized", "status": 401, "message": "Invalid OAuth token"})
		return
	}

	type channel struct {
		BroadcasterLogin string `json:"broadcaster_login"`
		DisplayName      string `json:"display_name"`
		ID               string `json:"id"`
	}
	data := []channel{}
	for i, login := range channels {
		if first > 0 && len(data) == first {
			break
		}
		if strings.Contains(login, strings.ToLower(query)) {
			data = append(data, channel{BroadcasterLogin: login, DisplayName: login, ID: strconv.Itoa(i + 1)})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data, "pagination": map[string]any{}})
}

func authorized(r *http.Request, token string) bool {
	return r.Header.Get("Client-Id") == FakeClientID && r.Header.Get("Authorization") == "Bearer "+token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
