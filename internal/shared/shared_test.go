package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpotifyURLs(t *testing.T) {
	tc := []struct {
		name  string
		url   string
		valid bool
		clean string
	}{
		{
			name:  "track",
			url:   "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			valid: true,
			clean: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:  "playlist with share query",
			url:   "  https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123 ",
			valid: true,
			clean: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "album over http",
			url:   "http://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3",
			valid: true,
			clean: "http://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3",
		},
		{
			name:  "unsupported kind",
			url:   "https://open.spotify.com/show/1DFixLWuPkv3KT3TnV35m3",
			valid: false,
			clean: "https://open.spotify.com/show/1DFixLWuPkv3KT3TnV35m3",
		},
		{
			name:  "other host",
			url:   "https://example.com/track/abc",
			valid: false,
			clean: "https://example.com/track/abc",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidSpotifyURL(tt.url); got != tt.valid {
				t.Errorf("ValidSpotifyURL() = %v, want %v", got, tt.valid)
			}
			if got := CleanSpotifyURL(tt.url); got != tt.clean {
				t.Errorf("CleanSpotifyURL() = %v, want %v", got, tt.clean)
			}
		})
	}
}

func TestParseSpotifyURLs(t *testing.T) {
	t.Run("skips blanks and comments", func(t *testing.T) {
		urls, err := ParseSpotifyURLs([]string{
			"# favourites",
			"",
			"https://open.spotify.com/track/aaa?si=1",
			"https://open.spotify.com/track/aaa",
		})
		if err != nil {
			t.Fatalf("ParseSpotifyURLs() error = %v", err)
		}
		if len(urls) != 2 || urls[0] != urls[1] {
			t.Errorf("expected duplicate cleaned urls to be kept, got %v", urls)
		}
	})

	t.Run("rejects invalid entry", func(t *testing.T) {
		_, err := ParseSpotifyURLs([]string{"https://open.spotify.com/track/aaa", "not a url"})
		if err == nil || !strings.Contains(err.Error(), "entry 2") {
			t.Errorf("expected error naming entry 2, got %v", err)
		}
	})
}

func TestOptimalWorkers(t *testing.T) {
	orig := numCPU
	t.Cleanup(func() { numCPU = orig })

	tc := []struct {
		cpus int
		want int
	}{
		{cpus: 1, want: 2},
		{cpus: 4, want: 2},
		{cpus: 10, want: 5},
		{cpus: 64, want: MaxWorkers},
	}

	for _, tt := range tc {
		numCPU = func() int { return tt.cpus }
		if got := OptimalWorkers(); got != tt.want {
			t.Errorf("OptimalWorkers() with %d cpus = %d, want %d", tt.cpus, got, tt.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	t.Run("GenerateState", func(t *testing.T) {
		a, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState() error = %v", err)
		}
		b, _ := GenerateState()
		if a == "" || a == b {
			t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
		}
	})

	t.Run("GenerateID", func(t *testing.T) {
		if id := GenerateID(); len(id) != 36 {
			t.Errorf("expected uuid string, got %q", id)
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		compact, err := MarshalJSON(map[string]int{"a": 1}, false)
		if err != nil || string(compact) != `{"a":1}` {
			t.Errorf("MarshalJSON(compact) = %s, %v", compact, err)
		}
		pretty, _ := MarshalJSON(map[string]int{"a": 1}, true)
		if !bytes.Contains(pretty, []byte("\n  ")) {
			t.Errorf("expected indented output, got %s", pretty)
		}
	})

	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "batch", "b1")
		logger.Info("started")
		if !strings.Contains(buf.String(), "batch=b1") {
			t.Errorf("expected key-value pair in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "savedl.log")
		logger, closer, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Info("hello")
		closer.Close()
	})

	t.Run("NewDatabase creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state", "history.db")
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 0, 0)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("RunMigrations() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected database file at %s: %v", path, err)
		}
	})

	t.Run("OpenBrowser unsupported platform", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		orig := getRuntime
		t.Cleanup(func() { getRuntime = orig })
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	const authURL = "https://accounts.spotify.com/authorize?client_id=abc"

	tc := []struct {
		name    string
		goos    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "darwin", goos: "darwin", url: authURL, want: "open"},
		{name: "linux", goos: "linux", url: authURL, want: "xdg-open"},
		{name: "windows", goos: "windows", url: authURL, want: "rundll32"},
		{name: "unsupported", goos: "plan9", url: authURL, wantErr: true},
		{name: "non-http scheme", goos: "linux", url: "file:///etc/passwd", wantErr: true},
	}

	t.Setenv("BROWSER", "")
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s %v", name, args)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.want {
				t.Errorf("command = %q, want %q", name, tt.want)
			}
			if args[len(args)-1] != tt.url {
				t.Errorf("last arg = %q, want the URL", args[len(args)-1])
			}
		})
	}

	t.Run("BROWSER override", func(t *testing.T) {
		t.Setenv("BROWSER", "firefox")
		name, _, err := browserCommand("linux", authURL)
		if err != nil || name != "firefox" {
			t.Errorf("browserCommand() = %q, %v; want firefox", name, err)
		}
	})
}
