// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/savedl/internal/models"
)

// MockLibrary is a test double for services.LibraryService serving a fixed set of tracks.
type MockLibrary struct {
	Tracks  []models.Track
	Profile *models.Profile
	Err     error
	Yielded int
}

func (m *MockLibrary) Name() string { return "mock" }

func (m *MockLibrary) UserProfile(ctx context.Context) (*models.Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Profile, nil
}

// SavedTrackSeq yields up to limit tracks, then Err if set.
func (m *MockLibrary) SavedTrackSeq(ctx context.Context, limit int) iter.Seq2[models.Track, error] {
	return func(yield func(models.Track, error) bool) {
		for _, track := range m.Tracks {
			if limit > 0 && m.Yielded >= limit {
				return
			}
			m.Yielded++
			if !yield(track, nil) {
				return
			}
		}
		if m.Err != nil {
			yield(models.Track{}, m.Err)
		}
	}
}

// NewTracks builds n tracks with sequential open.spotify.com URLs.
func NewTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range n {
		id := fmt.Sprintf("track%d", i)
		tracks[i] = models.Track{ID: id, Name: "Song " + id, Artists: []string{"Artist"}, URL: "https://open.spotify.com/track/" + id}
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
