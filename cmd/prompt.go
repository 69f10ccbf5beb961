package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/savedl/internal/shared"
)

// Prompter asks the user for values the config does not provide.
type Prompter interface {
	ClientID() (string, error)
	LikedLimit(defaultLimit int) (int, error)
	Confirm(title string) (bool, error)
}

// FormPrompter renders each prompt as a [huh] form.
type FormPrompter struct{}

// ClientID asks for a Spotify application client ID.
func (FormPrompter) ClientID() (string, error) {
	var clientID string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Spotify client ID").
				Description("Create an app at https://developer.spotify.com/dashboard and copy its client ID.").
				Placeholder("32 hex characters").
				Value(&clientID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("client ID is required")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("client ID prompt: %w", err)
	}
	return strings.TrimSpace(clientID), nil
}

// LikedLimit asks how many liked songs to download. Zero means all of them.
func (FormPrompter) LikedLimit(defaultLimit int) (int, error) {
	choice := "all"
	if defaultLimit > 0 {
		choice = "custom"
	}
	custom := strconv.Itoa(max(defaultLimit, 50))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How many liked songs?").
				Options(
					huh.NewOption("All liked songs", "all"),
					huh.NewOption("Most recent 50", "50"),
					huh.NewOption("Most recent 200", "200"),
					huh.NewOption("Custom", "custom"),
				).
				Value(&choice),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Number of songs").
				Value(&custom).
				Validate(func(s string) error {
					_, err := parseLimit(s)
					return err
				}),
		).WithHideFunc(func() bool { return choice != "custom" }),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return 0, fmt.Errorf("limit prompt: %w", err)
	}

	if choice == "custom" {
		return parseLimit(custom)
	}
	return parseLimit(choice)
}

// Confirm asks a yes/no question.
func (FormPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(huh.NewConfirm().Title(title).Value(&ok)),
	).WithTheme(huh.ThemeCharm()).Run()
	if err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	return ok, nil
}

// parseLimit reads a liked-songs limit: a positive count, or "all" (returned as 0).
func parseLimit(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive number or \"all\", got %q", shared.ErrInvalidFlag, s)
	}
	return n, nil
}
