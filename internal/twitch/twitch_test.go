package twitch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/desertthunder/streamgrid/internal/shared"
	tu "github.com/desertthunder/streamgrid/internal/testing"
)

func TestAppToken(t *testing.T) {
	ctx := context.Background()

	t.Run("client credentials grant", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		c := NewClient(fake.Config())

		token, err := c.AppToken(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != tu.FakeAppToken {
			t.Errorf("expected %s, got %s", tu.FakeAppToken, token)
		}
		if fake.TokenCalls() != 1 {
			t.Errorf("expected 1 token call, got %d", fake.TokenCalls())
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		cfg := fake.Config()
		cfg.ClientSecret = ""

		_, err := NewClient(cfg).AppToken(ctx)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if fake.TokenCalls() != 0 {
			t.Error("no request should be made without credentials")
		}
	})

	t.Run("rejected secret", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		cfg := fake.Config()
		cfg.ClientSecret = "wrong"

		if _, err := NewClient(cfg).AppToken(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		fake.FailToken(http.StatusInternalServerError)

		if _, err := NewClient(fake.Config()).AppToken(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(shared.TwitchConfig{ClientID: "abc", RedirectURI: "http://localhost:3000/"})

	raw := c.AuthorizeURL("xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}

	if u.Scheme+"://"+u.Host+u.Path != DefaultAuthorizeURL {
		t.Errorf("unexpected endpoint %s", raw)
	}

	q := u.Query()
	want := map[string]string{
		"client_id":     "abc",
		"redirect_uri":  "http://localhost:3000/",
		"response_type": "token",
		"scope":         "user:read:email",
		"state":         "xyz",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	if q := mustQuery(t, c.AuthorizeURL("")); q.Has("state") {
		t.Error("empty state should be omitted")
	}
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}
	return u.Query()
}

func TestFetchUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns first user", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		profile, err := NewClient(fake.Config()).FetchUser(ctx, tu.FakeUserToken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile != fake.User() {
			t.Errorf("expected %+v, got %+v", fake.User(), profile)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		if _, err := NewClient(fake.Config()).FetchUser(ctx, ""); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if fake.UsersCalls() != 0 {
			t.Error("no request should be made without a token")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		_, err := NewClient(fake.Config()).FetchUser(ctx, "stale")
		if !errors.Is(err, shared.ErrNotAuthenticated) || !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrNotAuthenticated wrapping ErrAPIRequest, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		fake.FailUsers(http.StatusServiceUnavailable)
		if _, err := NewClient(fake.Config()).FetchUser(ctx, tu.FakeUserToken); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSearchChannels(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps provider order up to limit", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		logins, err := NewClient(fake.Config()).SearchChannels(ctx, tu.FakeAppToken, "shroud", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"shroud", "shroudy", "shroud_fan", "shroudclips", "shroudtv"}
		if len(logins) != len(want) {
			t.Fatalf("expected %v, got %v", want, logins)
		}
		for i := range want {
			if logins[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], logins[i])
			}
		}
		if q := fake.Queries(); len(q) != 1 || q[0] != "shroud" {
			t.Errorf("unexpected queries %v", q)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		logins, err := NewClient(fake.Config()).SearchChannels(ctx, tu.FakeAppToken, "s", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(logins) != DefaultSearchLimit {
			t.Errorf("expected %d logins, got %d", DefaultSearchLimit, len(logins))
		}
	})

	t.Run("no app token", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		if _, err := NewClient(fake.Config()).SearchChannels(ctx, "", "shroud", 5); !errors.Is(err, shared.ErrNoAppToken) {
			t.Errorf("expected ErrNoAppToken, got %v", err)
		}
		if fake.SearchCalls() != 0 {
			t.Error("no request should be made without a token")
		}
	})

	t.Run("api failure", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		fake.FailSearch(http.StatusTooManyRequests)
		if _, err := NewClient(fake.Config()).SearchChannels(ctx, tu.FakeAppToken, "shroud", 5); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("rate limiter honours cancelled context", func(t *testing.T) {
		fake := tu.NewFakeTwitch(t)
		c := NewClient(fake.Config(), WithRateLimit(0.001))

		if _, err := c.SearchChannels(ctx, tu.FakeAppToken, "a", 5); err != nil {
			t.Fatalf("first search should use the burst: %v", err)
		}

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := c.SearchChannels(cctx, tu.FakeAppToken, "b", 5); err == nil {
			t.Error("expected rate limit wait to fail on cancelled context")
		}
		if fake.SearchCalls() != 1 {
			t.Errorf("expected 1 search call, got %d", fake.SearchCalls())
		}
	})
}
