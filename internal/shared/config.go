package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	EnvClientID     = "OPIUM_CLIENT_ID"
	EnvClientSecret = "OPIUM_CLIENT_SECRET"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Auth        AuthConfig        `toml:"auth"`
	State       StateConfig       `toml:"state"`
	Player      PlayerConfig      `toml:"player"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// APIConfig contains Web API and accounts endpoints plus transport settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	AuthURL        string  `toml:"auth_url"`
	TokenURL       string  `toml:"token_url"`
	Market         string  `toml:"market"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second
}

// AuthConfig controls the token lifecycle.
type AuthConfig struct {
	RefreshWindowSeconds  int `toml:"refresh_window_seconds"`
	RefreshTimeoutSeconds int `toml:"refresh_timeout_seconds"`
}

// StateConfig locates the persisted key-value state file.
type StateConfig struct {
	Path string `toml:"path"`
}

// PlayerConfig describes the external audio player used for previews.
type PlayerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Volume  float64  `toml:"volume"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig controls logging level and optional rotating file output.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Configured reports whether both client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// Timeout returns the HTTP client timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RefreshWindow returns how long before expiry a token is refreshed.
func (a AuthConfig) RefreshWindow() time.Duration {
	return time.Duration(a.RefreshWindowSeconds) * time.Second
}

// RefreshTimeout bounds a single refresh round trip.
func (a AuthConfig) RefreshTimeout() time.Duration {
	return time.Duration(a.RefreshTimeoutSeconds) * time.Second
}

// Addr returns the host:port the callback listener binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

// LoadEnv loads a .env file when present and applies credential overrides from the environment.
//
// godotenv never overrides variables that are already set. A missing file is not an error; an
// unreadable or malformed one is returned after the overrides have been applied.
func (c *Config) LoadEnv(files ...string) error {
	var loadErr error
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		loadErr = fmt.Errorf("%w: .env: %v", ErrInvalidConfig, err)
	}

	if id := os.Getenv(EnvClientID); id != "" {
		c.Credentials.Spotify.ClientID = id
	}
	if secret := os.Getenv(EnvClientSecret); secret != "" {
		c.Credentials.Spotify.ClientSecret = secret
	}
	return loadErr
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
