// Package ui provides the terminal dashboard for a pidash device.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never talks to the device directly:
// a pump in package app copies session snapshots into a state.Store, and
// the model reads that store on every tick. User actions go back through
// the Session interface, which is satisfied by session.Session.
//
// # Screens
//
//   - Checking: shown until the first auth check finishes
//   - Signed out: sign in and sign up forms (ctrl+s switches)
//   - Dashboard: System, GPIO and Account tabs
//
// # Mounting
//
// Only the current tab's view is open on the session. Switching tabs
// closes the previous view before opening the next one, and signing out
// closes whatever is open. After a local logout the model ignores stale
// signed-in snapshots until the store reports the sign out.
//
// # Package Structure
//
//   - app.go: Model, Update loop, mounting and key handling
//   - forms.go: text input forms with per-field errors
//   - header.go: header, tabs, footer and body composition
//   - system.go, gpio_view.go, account.go: tab views
//   - help.go: keyboard shortcut overlay
//   - theme.go: color themes and Lipgloss styles
//
// # Key Bindings
//
//   - 1/2/3, tab, shift+tab: Switch tabs
//   - r: Reload the current tab
//   - c/y: Copy hostname or IP address (System)
//   - j/k, u, o, space, enter: Select, edit and send pins (GPIO)
//   - p: Change password (Account)
//   - L: Sign out
//   - T: Cycle theme
//   - ?: Toggle help
//   - q or ctrl+c: Quit
package ui
