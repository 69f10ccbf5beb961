package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidBatchConfig is returned by [BatchConfig.Validate].
var ErrInvalidBatchConfig = errors.New("invalid batch configuration")

// Formats lists the audio formats spotdl can produce.
var Formats = []string{"mp3", "m4a", "flac", "opus", "ogg", "wav"}

// DefaultTemplate names downloaded files "<artist> - <title>".
const DefaultTemplate = "{artist} - {title}"

// WorkItem is a single URL submitted to a batch.
//
// Position is the item's index in the submitted list, so duplicate URLs stay distinct.
type WorkItem struct {
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// NewWorkItems numbers urls in submission order.
func NewWorkItems(urls []string) []WorkItem {
	items := make([]WorkItem, len(urls))
	for i, u := range urls {
		items[i] = WorkItem{Position: i, URL: u}
	}
	return items
}

// Dialect identifies the command-line grammar of the installed spotdl.
type Dialect int

const (
	// Legacy is spotdl 3.x.
	Legacy Dialect = iota
	// Current is spotdl 4.x and later.
	Current
)

func (d Dialect) String() string {
	switch d {
	case Current:
		return "v4"
	default:
		return "v3"
	}
}

// MaxConcurrency is the largest number of simultaneous invocations the dialect tolerates.
//
// Legacy spotdl writes into a shared temporary directory, so parallel runs beyond two clobber each other.
func (d Dialect) MaxConcurrency() int {
	if d == Current {
		return 8
	}
	return 2
}

// ParseDialect accepts the values produced by [Dialect.String].
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "v4", "current":
		return Current, nil
	case "v3", "legacy":
		return Legacy, nil
	}
	return Legacy, fmt.Errorf("unknown dialect %q", s)
}

// BatchConfig is the output configuration shared by every item in a batch.
type BatchConfig struct {
	OutputDir   string
	Format      string
	Concurrency int // 0 selects a worker count automatically
	Dialect     Dialect
	Template    string
	Timeout     time.Duration // per invocation, 0 disables
	SpawnRate   float64       // process starts per second, 0 is unlimited
}

// Validate rejects configurations that must never reach the tool.
func (c BatchConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.OutputDir) == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidBatchConfig)
	case !slices.Contains(Formats, c.Format):
		return fmt.Errorf("%w: unsupported format %q (want one of %s)", ErrInvalidBatchConfig, c.Format, strings.Join(Formats, ", "))
	case c.Concurrency < 0:
		return fmt.Errorf("%w: concurrency must not be negative, got %d", ErrInvalidBatchConfig, c.Concurrency)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidBatchConfig)
	case c.SpawnRate < 0:
		return fmt.Errorf("%w: spawn rate must not be negative", ErrInvalidBatchConfig)
	}
	return nil
}

// WithDialect returns a copy of c resolved to d.
func (c BatchConfig) WithDialect(d Dialect) BatchConfig {
	c.Dialect = d
	return c
}

// PathTemplate returns the filename template without extension.
func (c BatchConfig) PathTemplate() string {
	if c.Template == "" {
		return DefaultTemplate
	}
	return c.Template
}
