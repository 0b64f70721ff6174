// Package ui implements the terminal grid editor using bubbletea's Elm architecture.
//
// Two views share one [Model]:
//  1. [EntryListView] : browse entries, add/remove them and cycle their platform
//  2. [EditView] : type a username while Twitch channel suggestions arrive underneath
//
// Suggestion and session changes happen on other goroutines. They reach the model through a [Feed],
// which the model drains with a blocking command in the same way a progress channel would be drained.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, a/d/p, q) with contextual help displayed
// via charmbracelet/bubbles/help.
package ui
