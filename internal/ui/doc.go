// Package ui is the interactive dashboard built on Bubble Tea.
//
// Core abstractions:
//   - View: a screen or modal with its own model, update, view (Elm-style)
//   - Page: a View reachable through navigation and gated by auth.Guard
//   - Overlay: modal views (confirmations) stacked over the current page
//   - FocusManager: tab order across the form fields of a page
//   - KeyHandler: SPC-leader keybinds dispatched before pages see keys
//
// Pages fetch through a Backend in tea.Cmds. Replies carry the key they were
// requested for (teacher id, period, teacher pair) and a page drops replies
// whose key no longer matches its selection.
package ui
