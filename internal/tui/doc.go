// Package tui implements the interactive terminal dashboard.
//
// The model never owns domain state. Every update re-reads an immutable
// dashboard.Snapshot, and every remote call runs as a tea.Cmd against the
// dashboard, which records progress, outcome and notifications on its own.
// Notification changes are forwarded into the program so that toasts appear
// and expire without a key press.
package tui
