// Package heartbeat reports whether the device's push channel is reachable.
//
// The connected flag follows transport events only: an opened subscription
// sets it, any transport error clears it. Messages on the channel carry no
// meaning and are ignored. The flag keeps its last value while the monitor
// is disabled.
package heartbeat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/stream"
)

// Path is the heartbeat push endpoint.
const Path = "api/v1/heartbeat"

// Monitor tracks the connection status of the heartbeat subscription.
type Monitor struct {
	stream *stream.Stream
	gate   *stream.Gate
	log    zerolog.Logger

	mu        sync.RWMutex
	connected bool
}

// New returns a disabled Monitor. ready gates the subscription on top of
// SetEnabled; pass the auth store's Ready so the channel is only opened for a
// signed-in user. initial is the connected value before any transport event.
func New(sub endpoint.Subscriber, ready func() bool, initial bool, log zerolog.Logger) *Monitor {
	m := &Monitor{
		log:       log.With().Str("component", "heartbeat").Logger(),
		connected: initial,
	}
	m.stream = stream.New(sub, Path, stream.Events{
		OnOpen:  func() { m.setConnected(true) },
		OnError: func(err error) { m.setConnected(false) },
	}, log)
	m.gate = stream.NewGate(m.stream, ready)
	return m
}

// SetEnabled records whether the caller wants the heartbeat running.
func (m *Monitor) SetEnabled(enable bool) {
	m.gate.SetEnabled(enable)
}

// Refresh re-evaluates the readiness gate.
func (m *Monitor) Refresh() {
	m.gate.Refresh()
}

// Connected reports the last observed connection status.
func (m *Monitor) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Active reports whether a subscription is currently open or opening.
func (m *Monitor) Active() bool {
	return m.stream.Enabled()
}

// Close tears the monitor down.
func (m *Monitor) Close() {
	m.stream.Close()
}

func (m *Monitor) setConnected(v bool) {
	m.mu.Lock()
	changed := m.connected != v
	m.connected = v
	m.mu.Unlock()
	if changed {
		m.log.Info().Bool("connected", v).Msg("heartbeat status changed")
	}
}
