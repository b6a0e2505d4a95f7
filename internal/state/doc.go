// Package state provides thread-safe state management for the pidash UI.
//
// # Overview
//
// The session owns the live pieces (auth store, heartbeat, telemetry and
// GPIO streams, pending pin edits). Each of them is updated from its own
// goroutine: SSE callbacks, fetch commands, key handlers. The UI never reads
// them directly. Instead a pump copies a consistent Snapshot into the Store
// at a fixed cadence, and the UI renders whatever the Store holds.
//
//	Producer (pump):                  Consumer (UI):
//	┌──────────────────────┐         ┌──────────────────┐
//	│ session.Snapshot()   │         │                  │
//	│        ↓             │         │                  │
//	│ store.Update()       │────────→│ store.Snapshot() │
//	│        ↓             │ (mutex) │        ↓         │
//	│ repeat every tick    │         │ render           │
//	└──────────────────────┘         └──────────────────┘
//
// # Core Types
//
// Snapshot:
//   - Auth: the auth store's state, including the derived flag
//   - Connected: heartbeat status
//   - System, GPIO, Account: one entry per view, each embedding Page
//   - LastUpdated and LastError: when the pump last ran and whether
//     building the snapshot failed
//
// Page:
//   - Open: the view is mounted
//   - Completed and Err: the view's one-shot fetch outcome
//   - Streaming: the view's push subscription is live
//
// # Update Semantics
//
//	// Success case: replace the whole snapshot
//	store.Update(next, nil)
//	→ snapshot = clone(next)
//	→ snapshot.LastError = nil
//	→ snapshot.LastUpdated = now
//
//	// Error case: keep old view data, record error
//	store.Update(next, err)
//	→ snapshot.Auth, snapshot.Connected = next's
//	→ views unchanged
//	→ snapshot.LastError = err
//	→ snapshot.LastUpdated = now
//
// Errors come from decoding stream data into typed views. A malformed
// message therefore never blanks a card that was already showing values.
//
// # Copying
//
// Update clones its input and Snapshot clones its output. Pin maps, pending
// controls, partitions, interfaces and token claims are all copied, so the
// UI may hold a Snapshot for as long as it likes.
//
// The zero Store is ready to use.
package state
