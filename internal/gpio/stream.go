package gpio

import (
	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/stream"
)

// Stream follows the GPIO push channel. Each message is a partial pin map
// merged over the last one.
type Stream struct {
	req  *stream.Request
	gate *stream.Gate
}

// NewStream returns a disabled Stream seeded with the fetched pin states. A
// nil ready leaves the stream ungated.
func NewStream(sub endpoint.Subscriber, ready func() bool, seed stream.Doc, log zerolog.Logger) *Stream {
	req := stream.NewRequest(sub, StreamPath, seed, log)
	return &Stream{req: req, gate: stream.NewGate(req, ready)}
}

// SetEnabled records whether the caller wants the stream running.
func (s *Stream) SetEnabled(enable bool) { s.gate.SetEnabled(enable) }

// Refresh re-evaluates the readiness gate.
func (s *Stream) Refresh() { s.gate.Refresh() }

// Active reports whether a subscription is open.
func (s *Stream) Active() bool { return s.req.Enabled() }

// Close tears the stream down.
func (s *Stream) Close() { s.req.Close() }

// State returns the raw accumulated pin map.
func (s *Stream) State() stream.State { return s.req.State() }

// Pins decodes the accumulated pin map.
func (s *Stream) Pins() (Pins, error) {
	return DecodePins(s.req.State().Data)
}
