package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
)

// State is the accumulated stream data and when it last changed.
type State struct {
	Data      Doc
	Timestamp time.Time
}

// Request subscribes to one endpoint and shallow-merges every message into
// its state.
type Request struct {
	*Stream

	log zerolog.Logger

	mu    sync.RWMutex
	state State
}

// NewRequest returns a disabled Request seeded with seed. The seed is
// copied.
func NewRequest(sub endpoint.Subscriber, path string, seed Doc, log zerolog.Logger) *Request {
	r := &Request{
		log: log.With().Str("component", "stream").Str("path", path).Logger(),
		state: State{
			Data:      seed.Clone(),
			Timestamp: time.Now(),
		},
	}
	r.Stream = New(sub, path, Events{OnMessage: r.apply}, log)
	return r
}

func (r *Request) apply(raw json.RawMessage) {
	msg, err := ParseDoc(raw)
	if err != nil {
		r.log.Warn().Err(err).Msg("dropping stream message")
		return
	}
	r.merge(msg)
}

func (r *Request) merge(msg Doc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = State{
		Data:      r.state.Data.Merge(msg),
		Timestamp: time.Now(),
	}
}

// State returns a copy of the accumulated state.
func (r *Request) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{Data: r.state.Data.Clone(), Timestamp: r.state.Timestamp}
}
