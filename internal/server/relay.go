package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
)

// FragmentPath is where the relay page posts the captured fragment.
const FragmentPath = "/auth/fragment"

// RelayResult carries the fragment captured by the browser.
type RelayResult struct {
	Fragment string
	err      error
}

func (r *RelayResult) Error() error {
	return r.err
}

// RelayHandler serves the implicit-grant redirect page and accepts the fragment it posts back.
type RelayHandler struct {
	callbackPath string
	resultChan   chan RelayResult
	once         sync.Once
	mu           sync.Mutex
	received     bool
}

// NewRelayHandler creates a handler whose page is served at callbackPath, the path of the registered redirect URI.
func NewRelayHandler(callbackPath string) *RelayHandler {
	if callbackPath == "" {
		callbackPath = "/"
	}
	return &RelayHandler{
		callbackPath: callbackPath,
		resultChan:   make(chan RelayResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *RelayHandler) Routes() []string {
	page := "GET " + h.callbackPath
	if h.callbackPath == "/" {
		page = "GET /{$}"
	}
	return []string{page, "POST " + FragmentPath}
}

// ServeHTTP serves the relay page on GET and accepts the fragment on POST.
func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := relayPage.Execute(w, FragmentPath); err != nil {
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
		return
	}

	h.mu.Lock()
	if h.received {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.received = true
	h.mu.Unlock()

	var body struct {
		Fragment string `json:"fragment"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<10)).Decode(&body); err != nil {
		h.Send(RelayResult{err: fmt.Errorf("invalid relay body: %w", err)})
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Fragment == "" {
		h.Send(RelayResult{err: fmt.Errorf("authorization failed: no fragment received")})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(RelayResult{Fragment: body.Fragment})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"received"}`))
}

// Send sends the relay result through the channel (only once).
func (h *RelayHandler) Send(result RelayResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *RelayHandler) Result() <-chan RelayResult {
	return h.resultChan
}

var relayPage = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>streamgrid sign-in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0e0e10; color: #efeff1; }
        .container { text-align: center; background: #18181b; padding: 2rem; border-radius: 8px; }
        h1 { color: #9147ff; margin: 0 0 1rem 0; }
        p { color: #adadb8; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Completing sign-in...</h1>
        <p id="message">Please wait.</p>
    </div>
    <script>
        const fragment = window.location.hash;
        history.replaceState(null, "", window.location.pathname);
        fetch({{.}}, {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({ fragment: fragment })
        }).then((res) => {
            const ok = res.ok && fragment.includes("access_token=");
            document.getElementById("title").textContent = ok ? "Authorization Successful" : "Authorization Failed";
            document.getElementById("message").textContent = "You can close this window and return to the terminal.";
        });
    </script>
</body>
</html>
`))
