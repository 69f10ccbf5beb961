package shared

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

var spotifyURLPattern = regexp.MustCompile(`^https?://open\.spotify\.com/(track|album|playlist|artist)/[a-zA-Z0-9]+`)

// MaxWorkers is the upper bound on concurrent spotdl processes.
const MaxWorkers = 8

var numCPU = runtime.NumCPU

// ValidSpotifyURL reports whether url points at a track, album, playlist or artist on open.spotify.com.
func ValidSpotifyURL(url string) bool {
	return spotifyURLPattern.MatchString(strings.TrimSpace(url))
}

// CleanSpotifyURL trims whitespace and strips the query string (share tracking parameters).
func CleanSpotifyURL(url string) string {
	url = strings.TrimSpace(url)
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	return url
}

// ParseSpotifyURLs validates and cleans each URL, skipping blank lines and "#" comments.
//
// The first invalid entry aborts parsing with [ErrInvalidURL].
func ParseSpotifyURLs(lines []string) ([]string, error) {
	urls := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !ValidSpotifyURL(line) {
			return nil, fmt.Errorf("%w: entry %d: %s", ErrInvalidURL, i+1, line)
		}
		urls = append(urls, CleanSpotifyURL(line))
	}
	return urls, nil
}

// OptimalWorkers picks a worker count from the available CPUs: half of them, at least 2, at most [MaxWorkers].
func OptimalWorkers() int {
	n := numCPU() / 2
	if n < 2 {
		n = 2
	}
	return min(n, MaxWorkers)
}
