// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a stack of list screens rooted at a home menu:
//  1. [ListView] : categories, playlists, albums, artists and tracks; enter drills down or plays
//  2. [SearchView] : a text input whose results are flattened into a single list
//  3. [ProfileView] : the signed-in account
//  4. [NowPlayingView] : the current track and its position in the queue
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Playback events flow through a channel from the [player.Controller] and drive the mini-player bar
// rendered under every view. Failures surface in a banner that clears itself after [BannerTimeout].
//
// Contextual help is displayed via charmbracelet/bubbles/help.
package ui
