// Package auth owns the OAuth2 token lifecycle for the Spotify accounts service.
//
// # Manager
//
// [Manager] guarantees that every outbound API call carries a non-expired bearer token.
// [Manager.ValidToken] returns the cached access token while it is outside the refresh window
// (five minutes by default). Inside the window a single refresh is started and every concurrent
// caller is queued behind it; when the refresh completes the queue is drained in arrival order
// with either the new token or the failure.
//
// # State machine
//
//	Unauthenticated --Exchange--> Authenticated --window--> Refreshing --ok--> Authenticated
//	                                                             \--fail--> Unauthenticated
//	any --SignOut--> Unauthenticated
//
// A failed refresh clears the stored token so the user is forced to sign in again.
//
// # Persistence
//
// Tokens are persisted through a [TokenStore]. [NewStateTokenStore] adapts the shared TOML state
// file, which keeps the access token, refresh token and expiry as separate keys.
//
// Token requests use [oauth2.Config] with HTTP Basic client authentication and a
// form-urlencoded body.
package auth
