package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/pidash/internal/auth"
	"github.com/five82/pidash/internal/gpio"
	"github.com/five82/pidash/internal/sysinfo"
)

// Page is the load state shared by every view backed by a one-shot fetch.
type Page struct {
	// Open is true while the view is mounted.
	Open bool
	// Completed is true once the fetch cycle finished, with or without error.
	Completed bool
	Err       error
	// Streaming is true while the view's push subscription is open.
	Streaming bool
	UpdatedAt time.Time
}

// Loading reports whether the view is mounted and waiting for its fetch.
func (p Page) Loading() bool {
	return p.Open && !p.Completed
}

// System is the telemetry view.
type System struct {
	Page
	Time    sysinfo.TimeInfo
	General sysinfo.General
}

// GPIO is the pin view.
type GPIO struct {
	Page
	UsablePins []int
	Pins       gpio.Pins
	Controls   map[int]gpio.Control
	CanSubmit  bool
}

// Account is the signed-in user's view.
type Account struct {
	Page
	User   *auth.User
	Claims map[string]any
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Auth      auth.State
	Connected bool
	System    System
	GPIO      GPIO
	Account   Account

	LastUpdated time.Time
	LastError   error
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous view
// data is kept but the error is recorded for visibility. Auth and connection
// status are never decoded, so they are taken from next either way.
func (s *Store) Update(next Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.Auth = next.Auth
		s.snapshot.Connected = next.Connected
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		return
	}

	s.snapshot = clone(next)
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := clone(s.snapshot)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func clone(src Snapshot) Snapshot {
	dst := src
	dst.GPIO.UsablePins = append([]int(nil), src.GPIO.UsablePins...)
	if src.GPIO.Pins != nil {
		dst.GPIO.Pins = make(gpio.Pins, len(src.GPIO.Pins))
		for k, v := range src.GPIO.Pins {
			dst.GPIO.Pins[k] = v
		}
	}
	if src.GPIO.Controls != nil {
		dst.GPIO.Controls = make(map[int]gpio.Control, len(src.GPIO.Controls))
		for k, v := range src.GPIO.Controls {
			dst.GPIO.Controls[k] = v
		}
	}
	dst.System.General.Partitions = append([]sysinfo.Partition(nil), src.System.General.Partitions...)
	dst.System.General.Interfaces = append([]sysinfo.Interface(nil), src.System.General.Interfaces...)
	if src.Account.Claims != nil {
		dst.Account.Claims = make(map[string]any, len(src.Account.Claims))
		for k, v := range src.Account.Claims {
			dst.Account.Claims[k] = v
		}
	}
	return dst
}
