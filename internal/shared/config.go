package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override secrets from the TOML file.
const (
	EnvTwitchClientID     = "TWITCH_CLIENT_ID"
	EnvTwitchClientSecret = "TWITCH_CLIENT_SECRET"
	EnvTwitchRedirectURI  = "TWITCH_REDIRECT_URI"
	EnvLogLevel           = "STREAMGRID_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel    string            `toml:"log_level"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Search      SearchConfig      `toml:"search"`
	Grid        GridConfig        `toml:"grid"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Twitch TwitchConfig `toml:"twitch"`
}

// TwitchConfig contains Twitch application credentials and endpoint overrides.
//
// The endpoint fields exist so tests and mock servers can stand in for id.twitch.tv and api.twitch.tv.
type TwitchConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenURL     string `toml:"token_url"`
	AuthorizeURL string `toml:"authorize_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// HasAppCredentials reports whether both halves of the client credentials are present.
func (t TwitchConfig) HasAppCredentials() bool {
	return t.ClientID != "" && t.ClientSecret != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// ParentHost is sent to the Twitch player as the embedding origin. Defaults to Host.
	ParentHost string `toml:"parent_host"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// EmbedParent returns the hostname the Twitch player should validate against.
func (s ServerConfig) EmbedParent() string {
	if s.ParentHost != "" {
		return s.ParentHost
	}
	if s.Host == "" || s.Host == "0.0.0.0" || s.Host == "127.0.0.1" {
		return "localhost"
	}
	return s.Host
}

// SearchConfig tunes the channel autocomplete.
type SearchConfig struct {
	DebounceMS    int     `toml:"debounce_ms"`
	Limit         int     `toml:"limit"`
	RatePerSecond float64 `toml:"rate_per_second"`
}

// Debounce returns the quiet period as a [time.Duration].
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// GridConfig controls stream list behavior.
type GridConfig struct {
	// Persist saves the stream list to the database so it survives restarts.
	Persist bool `toml:"persist"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path if it exists, otherwise the defaults, then applies environment overrides.
//
// A .env file in the working directory (or at envFiles) is loaded first; a missing one is not an error.
func ResolveConfig(path string, envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overwrites secrets with values from the environment when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvTwitchClientID); v != "" {
		c.Credentials.Twitch.ClientID = v
	}
	if v := os.Getenv(EnvTwitchClientSecret); v != "" {
		c.Credentials.Twitch.ClientSecret = v
	}
	if v := os.Getenv(EnvTwitchRedirectURI); v != "" {
		c.Credentials.Twitch.RedirectURI = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the fields that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("%w: search debounce must not be negative", ErrInvalidConfig)
	}
	if c.Search.Limit < 0 || c.Search.Limit > 100 {
		return fmt.Errorf("%w: search limit %d out of range", ErrInvalidConfig, c.Search.Limit)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
