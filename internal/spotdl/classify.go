package spotdl

import (
	"regexp"
	"strings"

	"github.com/desertthunder/savedl/internal/models"
)

var (
	ansiPattern   = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	quotedPattern = regexp.MustCompile(`"([^"]+)"`)
)

var (
	skipMarkers     = []string{"already downloaded", "skipping"}
	notFoundMarkers = []string{"could not match", "lookuperror"}
)

// Clean strips ANSI escape sequences and every C0 and C1 control character except newline and tab.
func Clean(output string) string {
	output = ansiPattern.ReplaceAllString(output, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, output)
}

// Classify maps a finished invocation to an outcome kind and detail.
//
// Markers are matched case-insensitively on the cleaned output, with skip markers taking precedence over
// not-found markers, which take precedence over the exit status. For [models.NotFound] the detail is the first
// double-quoted substring of the output, if any.
func Classify(exitCode int, output string) (models.OutcomeKind, string) {
	cleaned := Clean(output)
	lower := strings.ToLower(cleaned)

	switch {
	case containsAny(lower, skipMarkers):
		return models.Skipped, ""
	case containsAny(lower, notFoundMarkers):
		if m := quotedPattern.FindStringSubmatch(cleaned); m != nil {
			return models.NotFound, m[1]
		}
		return models.NotFound, ""
	case exitCode == 0:
		return models.Downloaded, ""
	default:
		return models.Failed, lastLine(cleaned)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// lastLine returns the last non-blank line, which is where spotdl prints its error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
