// Package app is the composition root of pidash.
//
// # Overview
//
// Run wires configuration, logging, the device client, the session and the
// UI together, then blocks until the user quits or the context is cancelled.
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()            Read ~/.config/pidash/config.toml
//	       ├─────> logging.Init()           zerolog to the log file
//	       ├─────> endpoint.NewClient()     REST client with cookie jar
//	       ├─────> CookieTokenStore.Restore Reload a saved session token
//	       ├─────> session.New()            Auth store + gated streams
//	       ├─────> go session.Start()       Heartbeat request + auth check
//	       ├─────> StartPump()              Session -> state.Store
//	       └─────> ui.Run()                 Bubble Tea program (blocks)
//
// # Snapshot Pump
//
// The session's pieces change on their own goroutines (SSE callbacks, form
// submissions). StartPump copies session.Snapshot into a state.Store at the
// configured refresh interval (default 500ms); the UI reads the store on its
// own tick. A decode failure keeps the previous view data in the store and is
// logged once until it changes.
//
// # Error Handling
//
// Fatal (returned from Run): config parse errors, a bad log level or an
// unwritable log file, and an unparseable base URL.
//
// Everything after startup is recoverable: an unreachable device shows as a
// failed auth check or a disconnected heartbeat, and the streams keep
// retrying in the background.
package app
