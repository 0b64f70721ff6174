package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/repositories"
	"github.com/desertthunder/streamgrid/internal/server"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
	tu "github.com/desertthunder/streamgrid/internal/testing"
)

func testConfig(t *testing.T, fake *tu.FakeTwitch) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "streamgrid.db")
	config.Search.RatePerSecond = 0
	if fake != nil {
		config.Credentials.Twitch = fake.Config()
	}
	return config
}

func newTestRunner(t *testing.T, config *shared.Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: output})
	r.openBrowser = func(string) error { return nil }
	return r, output
}

// run executes args against the full command tree.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "streamgrid", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"streamgrid"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.openBrowser == nil {
				t.Error("expected a browser launcher")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "tui", "auth", "search", "streams", "embed"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("configure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("log_level = \"debug\"\n[server]\nport = 4100\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r, _ := newTestRunner(t, shared.DefaultConfig())
		if err := run(t, r, "embed", "--config", path, "kick", "xqc"); err != nil {
			t.Fatalf("embed failed: %v", err)
		}
		if r.config.Server.Port != 4100 || r.configPath != path {
			t.Errorf("expected config from %s, got port %d", path, r.config.Server.Port)
		}
	})
}

func TestEmbedCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{name: "twitch uses embed parent", args: []string{"twitch", "shroud"}, want: "https://player.twitch.tv/?channel=shroud&parent=localhost\n"},
		{name: "explicit parent", args: []string{"--parent", "grid.example", "twitch", "shroud"}, want: "https://player.twitch.tv/?channel=shroud&parent=grid.example\n"},
		{name: "youtube video id", args: []string{"YouTube", "dQw4w9WgXcQ"}, want: "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1\n"},
		{name: "kick", args: []string{"kick", "xqc"}, want: "https://player.kick.com/xqc\n"},
		{name: "unknown platform", args: []string{"vimeo", "x"}, wantErr: shared.ErrUnknownPlatform},
		{name: "missing username", args: []string{"kick"}, wantErr: shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, output := newTestRunner(t, shared.DefaultConfig())
			err := run(t, r, append([]string{"embed"}, tt.args...)...)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, output.String())
			}
		})
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		r, output := newTestRunner(t, shared.DefaultConfig())

		if err := run(t, r, "setup", "config", "--output", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Config written") {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := run(t, r, "setup", "config", "--output", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected error when file exists, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustChdir(t, dir)
		configPath := filepath.Join(dir, "config.toml")
		content := fmt.Sprintf("[database]\npath = %q\n", filepath.Join(dir, "grid.db"))
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r, output := newTestRunner(t, shared.DefaultConfig())
		if err := run(t, r, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "grid.db"))
		if !strings.Contains(output.String(), "2 migrations applied") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(t, r, "setup", "database", "--config", configPath, "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(output.String(), "1 migrations applied") {
			t.Errorf("unexpected output after rollback %q", output.String())
		}
	})

	t.Run("database creates missing config", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustChdir(t, dir)

		r, _ := newTestRunner(t, testConfig(t, nil))
		if err := run(t, r, "setup", "database", "--config", filepath.Join(dir, "new.toml")); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "new.toml"))
	})
}

func TestStreamsCommands(t *testing.T) {
	r, output := newTestRunner(t, testConfig(t, nil))

	t.Run("add fills the initial blank entry", func(t *testing.T) {
		if err := run(t, r, "streams", "add", "twitch", "shroud"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if err := run(t, r, "streams", "add", "kick", "xqc"); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		output.Reset()
		if err := run(t, r, "streams", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}

		var layout player.Layout
		if err := json.Unmarshal(output.Bytes(), &layout); err != nil {
			t.Fatalf("failed to decode layout: %v", err)
		}
		if len(layout.Tiles) != 2 || layout.Columns != 2 {
			t.Fatalf("unexpected layout %+v", layout)
		}
		if layout.Tiles[0].Entry.Username != "shroud" || layout.Tiles[1].URL != "https://player.kick.com/xqc" {
			t.Errorf("unexpected tiles %+v", layout.Tiles)
		}
	})

	t.Run("add rejects unknown platform", func(t *testing.T) {
		if err := run(t, r, "streams", "add", "vimeo", "x"); !errors.Is(err, shared.ErrUnknownPlatform) {
			t.Errorf("expected ErrUnknownPlatform, got %v", err)
		}
	})

	t.Run("list text", func(t *testing.T) {
		output.Reset()
		if err := run(t, r, "streams", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "2 streams in 2 columns") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export and import", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "grid.json")
		if err := run(t, r, "streams", "export", "--format", "json", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		output.Reset()
		if err := run(t, r, "streams", "export", "--format", "csv"); err != nil {
			t.Fatalf("csv export failed: %v", err)
		}
		if !strings.HasPrefix(output.String(), "ID,Platform,Username,Embed URL") {
			t.Errorf("unexpected csv %q", output.String())
		}

		if err := run(t, r, "streams", "add", "youtube", "@LofiGirl"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if err := run(t, r, "streams", "import", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		reg, st, found, err := r.loadSaved(context.Background())
		if err != nil || !found {
			t.Fatalf("expected saved grid, found=%v err=%v", found, err)
		}
		defer st.Close()
		if reg.Len() != 2 {
			t.Errorf("import should replace the grid, got %d entries", reg.Len())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		if err := run(t, r, "streams", "export", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		reg, st, _, err := r.loadSaved(context.Background())
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		entries := reg.List()
		st.Close()

		if err := run(t, r, "streams", "remove", "missing"); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
		if err := run(t, r, "streams", "remove", entries[1].ID); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if err := run(t, r, "streams", "remove", entries[0].ID); !errors.Is(err, shared.ErrLastEntry) {
			t.Errorf("expected ErrLastEntry, got %v", err)
		}
	})
}

func TestSearchCommands(t *testing.T) {
	fake := tu.NewFakeTwitch(t)
	r, output := newTestRunner(t, testConfig(t, fake))

	t.Run("search prints logins", func(t *testing.T) {
		if err := run(t, r, "search", "--limit", "2", "shroud"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if output.String() != "shroud\nshroudy\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search json", func(t *testing.T) {
		output.Reset()
		if err := run(t, r, "search", "--json", "summit"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if output.String() != `["summit1g"]`+"\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search without query", func(t *testing.T) {
		if err := run(t, r, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("history", func(t *testing.T) {
		output.Reset()
		if err := run(t, r, "search", "history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}

		var records []struct {
			Query       string `json:"query"`
			ResultCount int    `json:"result_count"`
		}
		if err := json.Unmarshal(output.Bytes(), &records); err != nil {
			t.Fatalf("failed to decode history %q: %v", output.String(), err)
		}
		if len(records) != 2 || records[0].Query != "summit" || records[1].ResultCount != 2 {
			t.Errorf("unexpected history %+v", records)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		config := testConfig(t, nil)
		config.Credentials.Twitch.ClientID = ""
		r, _ := newTestRunner(t, config)
		if err := run(t, r, "search", "shroud"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	fake := tu.NewFakeTwitch(t)
	config := testConfig(t, fake)
	ctx := context.Background()

	newSession := func(t *testing.T, r *Runner) (*session.Session, *stores) {
		t.Helper()
		st, err := r.openStores(ctx, false)
		if err != nil {
			t.Fatalf("failed to open stores: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		return session.New(r.twitchClient(), st.kv, session.WithLogger(r.logger)), st
	}

	t.Run("login relays the fragment", func(t *testing.T) {
		r, output := newTestRunner(t, config)
		sess, st := newSession(t, r)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		posted := make(chan error, 1)
		r.openBrowser = func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			fragment := "#access_token=" + tu.FakeUserToken + "&scope=user%3Aread%3Aemail&state=" + u.Query().Get("state")
			body, _ := json.Marshal(map[string]string{"fragment": fragment})

			go func() {
				resp, err := http.Post("http://"+ln.Addr().String()+server.FragmentPath, "application/json", bytes.NewReader(body))
				if err == nil {
					resp.Body.Close()
				}
				posted <- err
			}()
			return nil
		}

		if err := r.login(ctx, ln, sess, "/", 5*time.Second, false); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := <-posted; err != nil {
			t.Fatalf("relay post failed: %v", err)
		}

		if !strings.Contains(output.String(), "Signed in as Viewer (viewer)") {
			t.Errorf("unexpected output %q", output.String())
		}
		if token, err := st.kv.Get(ctx, repositories.KeyUserToken); err != nil || token != tu.FakeUserToken {
			t.Errorf("expected persisted token, got %q err=%v", token, err)
		}
	})

	t.Run("status shows saved sign-in", func(t *testing.T) {
		r, output := newTestRunner(t, config)
		if err := run(t, r, "auth", "status", "--verify"); err != nil {
			t.Fatalf("status failed: %v", err)
		}

		for _, want := range []string{"User: ✓ Viewer (viewer)", "App token: ✓ valid", "User token: ✓ valid"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in %q", want, output.String())
			}
		}
	})

	t.Run("logout", func(t *testing.T) {
		r, output := newTestRunner(t, config)
		if err := run(t, r, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}

		output.Reset()
		if err := run(t, r, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("expected signed out status, got %q", output.String())
		}
	})

	t.Run("login times out", func(t *testing.T) {
		r, _ := newTestRunner(t, config)
		sess, _ := newSession(t, r)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		err = r.login(ctx, ln, sess, "/", 50*time.Millisecond, true)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("login requires client id", func(t *testing.T) {
		noID := testConfig(t, nil)
		noID.Credentials.Twitch.ClientID = ""
		r, _ := newTestRunner(t, noID)
		if err := run(t, r, "auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	fake := tu.NewFakeTwitch(t)
	release := make(chan struct{})
	fake.OnToken(func() { <-release })
	r, _ := newTestRunner(t, testConfig(t, fake))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.serve(ctx, ln, "localhost", true, false) }()

	getSession := func() session.Snapshot {
		t.Helper()
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/session")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var snap session.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode session: %v", err)
		}
		return snap
	}

	t.Run("pages load while the token fetch is pending", func(t *testing.T) {
		if snap := getSession(); snap.HasAppToken {
			t.Errorf("token fetch is still blocked, got %+v", snap)
		}
	})

	t.Run("app token arrives in the background", func(t *testing.T) {
		close(release)
		deadline := time.Now().Add(2 * time.Second)
		for !getSession().HasAppToken {
			if time.Now().After(deadline) {
				t.Fatal("app token never arrived")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned error: %v", err)
		}
	case <-time.After(server.ShutdownTimeout + time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{addr: &net.TCPAddr{IP: net.IPv4zero, Port: 3000}, want: "localhost:3000"},
		{addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}, want: "localhost:8080"},
		{addr: &net.TCPAddr{IP: net.IPv4(192, 168, 1, 5), Port: 80}, want: "192.168.1.5:80"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := displayAddr(tt.addr, "localhost"); got != tt.want {
				t.Errorf("displayAddr(%v) = %s, want %s", tt.addr, got, tt.want)
			}
		})
	}
}
