// Package ui implements the terminal progress view for watched sync runs.
//
// [Model] is a bubbletea program that starts a sync in the background,
// relays the engine's progress-channel updates into the view, and renders
// the cached summary once the run persists. Styling comes from a shared
// [Palette] of lipgloss styles.
package ui
