// Package twitch wraps the Twitch endpoints the grid needs: the client-credentials app token,
// the implicit-grant authorize URL, the signed-in user's profile and channel search.
//
// Token requests go through golang.org/x/oauth2; Helix calls go through github.com/nicklaw5/helix/v2.
// Each Helix call builds its own client so app and user tokens never share mutable state.
package twitch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nicklaw5/helix/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/shared"
)

const (
	DefaultTokenURL     = "https://id.twitch.tv/oauth2/token"
	DefaultAuthorizeURL = "https://id.twitch.tv/oauth2/authorize"
	DefaultAPIBaseURL   = "https://api.twitch.tv/helix"

	// ScopeUserReadEmail is the only scope the grid asks for.
	ScopeUserReadEmail = "user:read:email"

	// DefaultSearchLimit is how many channel logins a search keeps.
	DefaultSearchLimit = 5
)

// Client talks to id.twitch.tv and api.twitch.tv on behalf of one registered application.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	authorizeURL string
	apiBaseURL   string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps channel searches at perSecond. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a [Client] from cfg. Empty endpoint fields fall back to the public Twitch URLs.
func NewClient(cfg shared.TwitchConfig, opts ...Option) *Client {
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		tokenURL:     orDefault(cfg.TokenURL, DefaultTokenURL),
		authorizeURL: orDefault(cfg.AuthorizeURL, DefaultAuthorizeURL),
		apiBaseURL:   orDefault(cfg.APIBaseURL, DefaultAPIBaseURL),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       shared.NewLogger(nil),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientID returns the application's client id.
func (c *Client) ClientID() string { return c.clientID }

// AppToken requests an app access token with the client-credentials grant.
//
// client_id, client_secret and grant_type travel in the form body.
func (c *Client) AppToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("%w: twitch client id and secret are required", shared.ErrMissingCredentials)
	}

	cc := clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cc.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: app token: %v", shared.ErrAuthFailed, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: app token response had no access_token", shared.ErrEmptyResponse)
	}
	return token.AccessToken, nil
}

// AuthorizeURL builds the implicit-grant redirect. state is omitted from the URL when empty.
func (c *Client) AuthorizeURL(state string) string {
	conf := oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: c.redirectURI,
		Scopes:      []string{ScopeUserReadEmail},
		Endpoint:    oauth2.Endpoint{AuthURL: c.authorizeURL, TokenURL: c.tokenURL},
	}
	return conf.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token"))
}

// FetchUser returns the profile that owns userToken.
func (c *Client) FetchUser(ctx context.Context, userToken string) (models.UserProfile, error) {
	if userToken == "" {
		return models.UserProfile{}, shared.ErrNotAuthenticated
	}

	hc, err := c.helix(ctx, helix.Options{UserAccessToken: userToken})
	if err != nil {
		return models.UserProfile{}, err
	}

	resp, err := hc.GetUsers(&helix.UsersParams{})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("%w: get users: %v", shared.ErrAPIRequest, err)
	}
	if err := checkResponse("get users", resp.ResponseCommon); err != nil {
		return models.UserProfile{}, err
	}
	if len(resp.Data.Users) == 0 {
		return models.UserProfile{}, fmt.Errorf("%w: get users returned no user", shared.ErrEmptyResponse)
	}

	u := resp.Data.Users[0]
	return models.UserProfile{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
	}, nil
}

// SearchChannels returns up to limit broadcaster logins matching query, in provider order.
func (c *Client) SearchChannels(ctx context.Context, appToken, query string, limit int) ([]string, error) {
	if appToken == "" {
		return nil, shared.ErrNoAppToken
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search rate limit: %w", err)
		}
	}

	hc, err := c.helix(ctx, helix.Options{AppAccessToken: appToken})
	if err != nil {
		return nil, err
	}

	resp, err := hc.SearchChannels(&helix.SearchChannelsParams{Channel: query, First: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: search channels: %v", shared.ErrAPIRequest, err)
	}
	if err := checkResponse("search channels", resp.ResponseCommon); err != nil {
		return nil, err
	}

	logins := make([]string, 0, limit)
	for _, ch := range resp.Data.Channels {
		if len(logins) == limit {
			break
		}
		logins = append(logins, ch.BroadcasterLogin)
	}
	return logins, nil
}

// helix builds a Helix client carrying exactly one token.
func (c *Client) helix(ctx context.Context, opts helix.Options) (*helix.Client, error) {
	opts.ClientID = c.clientID
	opts.APIBaseURL = c.apiBaseURL
	opts.HTTPClient = c.httpClient

	hc, err := helix.NewClientWithContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}
	return hc, nil
}

func checkResponse(op string, rc helix.ResponseCommon) error {
	if rc.StatusCode == http.StatusOK {
		return nil
	}

	err := fmt.Errorf("%w: %s returned %d: %s", shared.ErrAPIRequest, op, rc.StatusCode, rc.ErrorMessage)
	if rc.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	return err
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
