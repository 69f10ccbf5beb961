// Spotify Web API implementation of [OAuthService]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// SavedTracksPageSize is the largest page the saved tracks endpoint serves.
	SavedTracksPageSize = 50

	maxRetryAfter = 30 * time.Second
)

// DefaultRedirectURI is where the local callback listener receives the authorization code.
const DefaultRedirectURI = "http://127.0.0.1:8888/callback"

var spotifyScopes = []string{"user-library-read", "playlist-read-private"}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist is the simplified artist object embedded in tracks.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum is the simplified album object embedded in tracks.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []SpotifyArtist   `json:"artists"`
	Album        SpotifyAlbum      `json:"album"`
	DurationMS   int               `json:"duration_ms"`
	ExternalURLs map[string]string `json:"external_urls"`
	IsLocal      bool              `json:"is_local"`
	URI          string            `json:"uri"`
}

// SpotifySavedTrack wraps a track with the time it was saved.
type SpotifySavedTrack struct {
	AddedAt time.Time    `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks is one page of the saved tracks endpoint.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// Model converts the saved track into a [models.Track].
func (s SpotifySavedTrack) Model() models.Track {
	artists := make([]string, 0, len(s.Track.Artists))
	for _, a := range s.Track.Artists {
		artists = append(artists, a.Name)
	}
	return models.Track{
		ID:         s.Track.ID,
		Name:       s.Track.Name,
		Artists:    artists,
		Album:      s.Track.Album.Name,
		URL:        s.Track.ExternalURLs["spotify"],
		DurationMs: s.Track.DurationMS,
		AddedAt:    s.AddedAt,
	}
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string // optional; PKCE is always used
	RedirectURI  string
	HTTPClient   *http.Client
	BaseURL      string
	RateLimit    rate.Limit // API requests per second, 0 = unlimited
	MaxRetries   uint64
	Logger       *log.Logger
}

// SpotifyService implements [OAuthService] for the Spotify Web API.
//
// Requests are authorized through an [oauth2.TokenSource] that refreshes expired tokens
// and reports each new token to the refresh callback so it can be persisted.
type SpotifyService struct {
	config         *oauth2.Config
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	maxRetries     uint64
	logger         *log.Logger
	mu             sync.Mutex
	tokens         oauth2.TokenSource
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a Spotify client. Only the client ID is required.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		opts.RedirectURI = DefaultRedirectURI
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	authStyle := oauth2.AuthStyleInHeader
	if opts.ClientSecret == "" {
		authStyle = oauth2.AuthStyleInParams
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: authStyle,
			},
		},
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the client configuration used for the authorization code flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the authorization URL carrying the S256 challenge for verifier.
func (s *SpotifyService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token and authenticates with it.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}
	if err := s.SetToken(token); err != nil {
		return nil, err
	}
	return token, nil
}

// SetToken authenticates the service with token, replacing any previous one.
func (s *SpotifyService) SetToken(token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient)
	s.tokens = &refreshableTokenSource{
		source:   oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token)),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	return nil
}

// SetTokenRefreshCallback registers fn to receive every token obtained by a refresh.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onTokenRefresh = fn
	if rts, ok := s.tokens.(*refreshableTokenSource); ok {
		rts.setCallback(fn)
	}
}

// Authenticated reports whether a token has been set.
func (s *SpotifyService) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens != nil
}

func (s *SpotifyService) accessToken() (string, error) {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	if tokens == nil {
		return "", shared.ErrNotAuthenticated
	}

	token, err := tokens.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return token.AccessToken, nil
}

// doRequest performs an authenticated GET against the Web API.
//
// 429 and 5xx responses are retried with exponential backoff. A Retry-After header delays the next attempt.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		accessToken, err := s.accessToken()
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			s.logger.Warn("spotify rate limited", "endpoint", endpoint, "retry_after", wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			return retry.RetryableError(shared.ErrRateLimited)
		case resp.StatusCode >= 500:
			s.logger.Warn("spotify server error", "endpoint", endpoint, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode))
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify rejected the access token", shared.ErrTokenExpired)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*models.Profile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
	}, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, SavedTracksPageSize)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(max(offset, 0)))

	var page SpotifyPaginatedTracks
	if err := s.doRequest(ctx, "/me/tracks?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SavedTrackSeq pages through saved tracks until limit tracks were yielded or the library is exhausted.
func (s *SpotifyService) SavedTrackSeq(ctx context.Context, limit int) iter.Seq2[models.Track, error] {
	return func(yield func(models.Track, error) bool) {
		yielded, offset := 0, 0
		for limit <= 0 || yielded < limit {
			size := SavedTracksPageSize
			if limit > 0 {
				size = min(size, limit-yielded)
			}

			page, err := s.SavedTracks(ctx, size, offset)
			if err != nil {
				yield(models.Track{}, err)
				return
			}
			s.logger.Debug("fetched saved tracks", "offset", offset, "count", len(page.Items), "total", page.Total)

			for _, item := range page.Items {
				if !yield(item.Model(), nil) {
					return
				}
				yielded++
				if limit > 0 && yielded >= limit {
					return
				}
			}

			offset += len(page.Items)
			if page.Next == nil || len(page.Items) == 0 {
				return
			}
		}
	}
}

// refreshableTokenSource reports tokens that differ from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) setCallback(fn func(*oauth2.Token)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	callback := r.callback
	r.mu.Unlock()

	if changed && callback != nil {
		callback(token)
	}
	return token, nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	if at, err := http.ParseTime(header); err == nil {
		return min(max(time.Until(at), 0), maxRetryAfter)
	}
	return time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsAuthError reports whether err means the user must authorize again.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated)
}
