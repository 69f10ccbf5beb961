// package services defines interface LibraryService for reading a user's saved music from a streaming provider
package services

import (
	"context"
	"iter"

	"github.com/desertthunder/savedl/internal/models"
	"golang.org/x/oauth2"
)

// LibraryService defines the interface for music providers that expose a user's saved tracks.
type LibraryService interface {
	// UserProfile retrieves the authenticated user's profile.
	UserProfile(ctx context.Context) (*models.Profile, error)

	// SavedTrackSeq yields saved tracks newest first, fetching pages lazily.
	// A limit of zero or less yields every saved track.
	SavedTrackSeq(ctx context.Context, limit int) iter.Seq2[models.Track, error]

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [LibraryService] for providers authorized through the OAuth2 code flow with PKCE.
type OAuthService interface {
	LibraryService

	// AuthURL returns the authorization URL for the given state and PKCE verifier.
	AuthURL(state, verifier string) string

	// Exchange trades an authorization code for a token and authenticates the service with it.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// SetToken authenticates the service with a previously stored token.
	SetToken(token *oauth2.Token) error

	// OAuthConfig exposes the underlying client configuration.
	OAuthConfig() *oauth2.Config
}

// LikedURLs collects the share URLs of up to limit saved tracks.
//
// Tracks without a URL (local files, unavailable releases) are skipped.
func LikedURLs(ctx context.Context, srv LibraryService, limit int) ([]string, error) {
	var urls []string
	for track, err := range srv.SavedTrackSeq(ctx, limit) {
		if err != nil {
			return urls, err
		}
		if track.URL == "" {
			continue
		}
		urls = append(urls, track.URL)
	}
	return urls, nil
}
