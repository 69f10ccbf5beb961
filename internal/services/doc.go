// Package services reads a user's saved music from streaming providers through the [LibraryService] interface.
//
// # Spotify Implementation
//
// [SpotifyService] authorizes with the OAuth2 authorization code flow and PKCE, so a client secret is optional.
// Tokens are refreshed by an [oauth2.TokenSource]; every refreshed token is handed to the callback registered with
// [SpotifyService.SetTokenRefreshCallback] so the CLI can write it back to config.toml.
//
// # Paging
//
// [SpotifyService.SavedTrackSeq] is an iterator over the Liked Songs library. Pages of 50 are fetched lazily,
// so breaking out of the loop stops further requests. [LikedURLs] collects the share URLs handed to the download engine.
//
// # Error Handling
//
// Requests are paced by a [rate.Limiter] and retried with go-retry when Spotify answers 429 or 5xx.
// Errors wrap sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : no token was set
//   - [shared.ErrTokenExpired] : refresh failed or the API rejected the token
//   - [shared.ErrRateLimited] : retries exhausted on 429
//   - [shared.ErrServiceUnavailable] : retries exhausted on 5xx
//   - [shared.ErrAPIRequest] : any other failed request
package services
