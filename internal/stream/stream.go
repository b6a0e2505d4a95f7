package stream

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
)

// Events are invoked for the live subscription only, one at a time, while
// the Stream's lock is held. They must not call back into the Stream.
type Events struct {
	OnOpen    func()
	OnError   func(error)
	OnMessage func(json.RawMessage)
}

// Stream manages the subscription lifecycle for one endpoint.
type Stream struct {
	sub    endpoint.Subscriber
	path   string
	events Events
	log    zerolog.Logger

	mu      sync.Mutex
	enabled bool
	closed  bool
	active  endpoint.Subscription
	gen     uint64
}

// New returns a disabled Stream for path.
func New(sub endpoint.Subscriber, path string, events Events, log zerolog.Logger) *Stream {
	return &Stream{
		sub:    sub,
		path:   path,
		events: events,
		log:    log.With().Str("component", "stream").Str("path", path).Logger(),
	}
}

// Path returns the endpoint this stream subscribes to.
func (s *Stream) Path() string {
	return s.path
}

// SetEnabled opens a new subscription on a false-to-true transition and
// closes the live one on a true-to-false transition. Repeating the current
// value is a no-op.
func (s *Stream) SetEnabled(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || enable == s.enabled {
		return
	}
	s.enabled = enable
	if !enable {
		s.closeActiveLocked()
		return
	}
	s.openLocked()
}

// Enabled reports whether the stream is currently enabled.
func (s *Stream) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close tears the stream down for good. It is the unmount transition.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.enabled = false
	s.closeActiveLocked()
}

func (s *Stream) openLocked() {
	s.closeActiveLocked()

	s.gen++
	gen := s.gen
	sub, err := s.sub.Subscribe(s.path, endpoint.Handlers{
		OnOpen: func() {
			s.deliver(gen, func() {
				if s.events.OnOpen != nil {
					s.events.OnOpen()
				}
			})
		},
		OnError: func(err error) {
			s.deliver(gen, func() {
				if s.events.OnError != nil {
					s.events.OnError(err)
				}
			})
		},
		OnMessage: func(msg json.RawMessage) {
			s.deliver(gen, func() {
				if s.events.OnMessage != nil {
					s.events.OnMessage(msg)
				}
			})
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("subscribe failed")
		if s.events.OnError != nil {
			s.events.OnError(err)
		}
		return
	}
	s.active = sub
	s.log.Debug().Uint64("generation", gen).Msg("subscribed")
}

func (s *Stream) closeActiveLocked() {
	if s.active == nil {
		return
	}
	s.active.Close()
	s.active = nil
	s.gen++
	s.log.Debug().Msg("unsubscribed")
}

// deliver runs fn only if gen still names the live subscription.
func (s *Stream) deliver(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.enabled || s.active == nil || gen != s.gen {
		return
	}
	fn()
}
