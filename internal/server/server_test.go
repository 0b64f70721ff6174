package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/streamgrid/internal/metrics"
)

func TestBasicRouter(t *testing.T) {
	t.Run("routes by method and path value", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/items/{id}", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, "get "+req.PathValue("id"))
		})
		r.HandleFunc(http.MethodDelete, "/items/{id}", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, "delete "+req.PathValue("id"))
		})

		tests := []struct {
			method, path string
			status       int
			body         string
		}{
			{method: http.MethodGet, path: "/items/42", status: http.StatusOK, body: "get 42"},
			{method: http.MethodDelete, path: "/items/7", status: http.StatusOK, body: "delete 7"},
			{method: http.MethodPost, path: "/items/7", status: http.StatusMethodNotAllowed},
			{method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.method+" "+tt.path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

				if rec.Code != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, rec.Code)
				}
				if tt.body != "" && rec.Body.String() != tt.body {
					t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
				}
			})
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.HandleFunc(http.MethodGet, "/", func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RequestLogger records status", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

		out := buf.String()
		if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/brew") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("Recover converts panics", func(t *testing.T) {
		h := Recover(log.New(io.Discard))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Instrument counts", func(t *testing.T) {
		m := metrics.New()
		h := Instrument(m)(http.NotFoundHandler())
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		rec := httptest.NewRecorder()
		m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if !strings.Contains(rec.Body.String(), `streamgrid_http_requests_total{class="4xx"} 1`) {
			t.Errorf("expected a 4xx sample, got %s", rec.Body.String())
		}
	})
}

func TestRelayHandler(t *testing.T) {
	newServer := func(t *testing.T, path string) (*RelayHandler, *httptest.Server) {
		t.Helper()
		h := NewRelayHandler(path)
		r := NewBasicRouter()
		r.Handler(h)
		srv := httptest.NewServer(r)
		t.Cleanup(srv.Close)
		return h, srv
	}

	t.Run("serves relay page at callback path", func(t *testing.T) {
		_, srv := newServer(t, "/")
		resp, err := http.Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), "history.replaceState") || !strings.Contains(string(body), FragmentPath) {
			t.Errorf("relay page missing script: %s", body)
		}
	})

	t.Run("delivers fragment once", func(t *testing.T) {
		h, srv := newServer(t, "/callback")
		post := func() *http.Response {
			resp, err := http.Post(srv.URL+FragmentPath, "application/json", strings.NewReader(`{"fragment":"#access_token=a&scope=s"}`))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			return resp
		}

		if resp := post(); resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}

		select {
		case res := <-h.Result():
			if res.Error() != nil || res.Fragment != "#access_token=a&scope=s" {
				t.Errorf("unexpected result %+v", res)
			}
		case <-time.After(time.Second):
			t.Fatal("no result delivered")
		}

		if resp := post(); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("second post should be rejected, got %d", resp.StatusCode)
		}
	})

	t.Run("empty fragment reports failure", func(t *testing.T) {
		h, srv := newServer(t, "/callback")
		resp, err := http.Post(srv.URL+FragmentPath, "application/json", strings.NewReader(`{"fragment":""}`))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		res := <-h.Result()
		if res.Error() == nil {
			t.Error("expected error result")
		}
	})
}

func TestListenAndServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, ln, http.NotFoundHandler(), log.New(io.Discard))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
