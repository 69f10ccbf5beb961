package models

import (
	"strings"
	"time"
)

// Track is a saved track from the user's library.
type Track struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Artists    []string  `json:"artists"`
	Album      string    `json:"album"`
	URL        string    `json:"url"`
	DurationMs int       `json:"duration_ms"`
	AddedAt    time.Time `json:"added_at"`
}

// Artist joins the track's artists for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Profile is the authenticated account.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
}
