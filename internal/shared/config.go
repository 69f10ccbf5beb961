package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Downloads   DownloadsConfig   `toml:"downloads"`
	Spotdl      SpotdlConfig      `toml:"spotdl"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the cached OAuth token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenType    string    `toml:"token_type,omitempty"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// DownloadsConfig holds the defaults applied to every batch.
type DownloadsConfig struct {
	OutputDir string  `toml:"output_dir"`
	Format    string  `toml:"format"`
	Workers   int     `toml:"workers"`
	Template  string  `toml:"template"`
	Timeout   string  `toml:"timeout"`
	SpawnRate float64 `toml:"spawn_rate"`
}

// SpotdlConfig describes how the external spotdl tool is launched.
type SpotdlConfig struct {
	Command []string `toml:"command"`
	Detect  string   `toml:"detect"`
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
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Update stores the token's fields on the Spotify configuration.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", ErrInvalidArgument)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry
	return nil
}

// Token rebuilds the cached token, or returns nil when none is stored.
func (s *SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

// ClearToken drops any cached token.
func (s *SpotifyConfig) ClearToken() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.TokenType = ""
	s.Expiry = time.Time{}
}

// HasClientID reports whether a real client ID has been configured.
func (s *SpotifyConfig) HasClientID() bool {
	return s.ClientID != "" && s.ClientID != "your_spotify_client_id"
}

// TimeoutDuration parses the per-track timeout. An empty value means no limit.
func (d DownloadsConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(d.Timeout) == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: downloads.timeout %q: %v", ErrInvalidConfig, d.Timeout, err)
	}
	return dur, nil
}

// ResolvedOutputDir expands a leading "~" in the output directory.
func (d DownloadsConfig) ResolvedOutputDir() string {
	return ExpandHome(d.OutputDir)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(config *Config, path string) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidArgument)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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
