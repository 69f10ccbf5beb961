package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./savedl.db" {
			t.Errorf("expected database path ./savedl.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8888 {
			t.Errorf("expected server port 8888, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:8888/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Credentials.Spotify.HasClientID() {
			t.Error("placeholder client id should not count as configured")
		}

		if config.Downloads.Format != "mp3" || config.Downloads.Workers != 0 {
			t.Errorf("unexpected download defaults %+v", config.Downloads)
		}

		if len(config.Spotdl.Command) != 1 || config.Spotdl.Command[0] != "spotdl" {
			t.Errorf("expected spotdl command [spotdl], got %v", config.Spotdl.Command)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[downloads]
output_dir = "/music"
format = "flac"
workers = 3
timeout = "90s"

[spotdl]
command = ["python3", "-m", "spotdl"]

[credentials.spotify]
client_id = "test_client_id"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8888 {
			t.Errorf("missing sections should keep defaults, got port %d", config.Server.Port)
		}

		if config.Downloads.Format != "flac" || config.Downloads.Workers != 3 {
			t.Errorf("unexpected downloads section %+v", config.Downloads)
		}

		if got := strings.Join(config.Spotdl.Command, " "); got != "python3 -m spotdl" {
			t.Errorf("expected python3 -m spotdl, got %s", got)
		}

		timeout, err := config.Downloads.TimeoutDuration()
		if err != nil || timeout != 90*time.Second {
			t.Errorf("TimeoutDuration() = %v, %v", timeout, err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("SaveConfig round trips tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

		if err := config.Credentials.Spotify.Update(&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       expiry,
		}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if err := SaveConfig(config, configPath); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		token := loaded.Credentials.Spotify.Token()
		if token == nil {
			t.Fatal("expected cached token")
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" || !token.Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("SaveConfig nil", func(t *testing.T) {
		err := SaveConfig(nil, filepath.Join(t.TempDir(), "config.toml"))
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSpotifyConfig(t *testing.T) {
	t.Run("Update keeps refresh token when omitted", func(t *testing.T) {
		sc := SpotifyConfig{RefreshToken: "old"}
		if err := sc.Update(&oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if sc.RefreshToken != "old" || sc.AccessToken != "new" {
			t.Errorf("unexpected config %+v", sc)
		}
	})

	t.Run("Update rejects nil", func(t *testing.T) {
		sc := SpotifyConfig{}
		if err := sc.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}
	})

	t.Run("Token is nil without credentials", func(t *testing.T) {
		sc := SpotifyConfig{ClientID: "id"}
		if sc.Token() != nil {
			t.Error("expected nil token")
		}
	})

	t.Run("ClearToken", func(t *testing.T) {
		sc := SpotifyConfig{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now()}
		sc.ClearToken()
		if sc.Token() != nil || !sc.Expiry.IsZero() {
			t.Errorf("expected cleared token, got %+v", sc)
		}
	})
}

func TestDownloadsConfig(t *testing.T) {
	t.Run("invalid timeout", func(t *testing.T) {
		d := DownloadsConfig{Timeout: "soon"}
		if _, err := d.TimeoutDuration(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("empty timeout", func(t *testing.T) {
		d := DownloadsConfig{}
		if got, err := d.TimeoutDuration(); got != 0 || err != nil {
			t.Errorf("TimeoutDuration() = %v, %v", got, err)
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got := ExpandHome("~/Music"); got != filepath.Join(home, "Music") {
			t.Errorf("ExpandHome() = %s", got)
		}
		if got := ExpandHome("/abs/~/x"); got != "/abs/~/x" {
			t.Errorf("ExpandHome() should leave absolute paths, got %s", got)
		}
	})
}
