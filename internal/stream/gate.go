package stream

import "sync"

// Enabler is anything with an on/off switch.
type Enabler interface {
	SetEnabled(enable bool)
}

// Gate drives target with requested && ready().
type Gate struct {
	target Enabler
	ready  func() bool

	mu        sync.Mutex
	requested bool
}

// NewGate returns a Gate that starts with nothing requested. A nil ready
// always reports true.
func NewGate(target Enabler, ready func() bool) *Gate {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Gate{target: target, ready: ready}
}

// SetEnabled records the caller's request and re-evaluates the gate.
func (g *Gate) SetEnabled(enable bool) {
	g.mu.Lock()
	g.requested = enable
	g.mu.Unlock()
	g.Refresh()
}

// Refresh re-evaluates readiness. Call it whenever the inputs of ready
// change.
func (g *Gate) Refresh() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.target.SetEnabled(g.requested && g.ready())
}

// Requested reports the caller's last request.
func (g *Gate) Requested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requested
}
