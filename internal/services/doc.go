// Package services implements the typed Spotify Web API client used by the CLI and TUI.
//
// # Catalog
//
// [SpotifyService] implements [Catalog]: browse categories, category playlists, new releases,
// playlists, albums, artists, search and the current user. Every request
//
//  1. waits on a [rate.Limiter],
//  2. asks the [TokenProvider] for a bearer token, which may trigger a refresh,
//  3. decodes the JSON body into Spotify DTOs (SpotifyTrack, SpotifyAlbum, ...),
//  4. maps the DTOs into [models] types.
//
// Null entries in paged payloads, which the API uses for removed or unavailable items, are skipped.
//
// # Search
//
// [SpotifyService.Search] queries albums, artists, playlists and tracks at once and returns
// [SearchResults]. [SearchResults.Flatten] merges the groups in the fixed order tracks, artists,
// playlists, albums, each group keeping the API's order.
//
// # Raw access
//
// [APIService] issues authenticated GETs to arbitrary paths and returns the raw body, for
// debugging from the command line.
//
// # Error Handling
//
// Failures wrap sentinels from the shared package:
//   - [shared.ErrTransport] : the request never produced a response
//   - [shared.ErrAPIRequest] : non-2xx status; the API's error message is included
//   - [shared.ErrDecode] : unexpected JSON shape
//   - [shared.ErrInvalidURL] : the request URL could not be built
//   - [shared.ErrNotAuthenticated] : no token is available
package services
