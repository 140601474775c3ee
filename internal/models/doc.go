// Package models defines the domain entities shared by the API client, the token manager and the player.
//
// The package contains plain Data Transfer Objects mapped from Spotify responses:
//   - [Track] : a playable item with an optional 30-second preview URL; equality by ID
//   - [Artist], [Album], [Playlist], [Category], [UserProfile] : catalog entities
//   - [Token] : OAuth2 access/refresh credentials with their expiry
//
// None of these types carry behavior beyond small accessors; fetching and mapping lives in the services package.
package models
