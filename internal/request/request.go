package request

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
)

// Endpoint pairs a caller-chosen label with a relative API path.
type Endpoint struct {
	Label string
	Path  string
}

// Endpoints is an ordered labeled set of GET requests. Order is the fetch
// order.
type Endpoints []Endpoint

// Key identifies the shape of the set. Two sets with the same labels and
// paths in the same order share a key.
func (e Endpoints) Key() string {
	var b strings.Builder
	for i, ep := range e {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(ep.Label)
		b.WriteByte('=')
		b.WriteString(ep.Path)
	}
	return b.String()
}

// State is the outcome of the most recent fetch cycle.
type State struct {
	Data      map[string]json.RawMessage
	Err       error
	Completed bool
	Timestamp time.Time
}

// Decode unmarshals the result stored under label into dest. It reports
// false when the label has no result.
func (s State) Decode(label string, dest any) (bool, error) {
	raw, ok := s.Data[label]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("decode %s: %w", label, err)
	}
	return true, nil
}

// Fetch issues one GET per endpoint in order and stops at the first failure.
// The returned map holds the results gathered before that failure.
func Fetch(ctx context.Context, g endpoint.Getter, endpoints Endpoints) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage, len(endpoints))
	for _, ep := range endpoints {
		var raw json.RawMessage
		if err := g.Get(ctx, ep.Path, &raw); err != nil {
			return result, fmt.Errorf("fetch %s: %w", ep.Label, err)
		}
		result[ep.Label] = raw
	}
	return result, nil
}

// DataRequest owns the request state for one consumer. It fetches when it
// is first synced and again only when the endpoint set's key changes.
type DataRequest struct {
	getter endpoint.Getter
	log    zerolog.Logger

	mu      sync.RWMutex
	state   State
	lastKey string
	synced  bool
	cycle   uint64
}

// NewDataRequest returns a request in the not-yet-completed state.
func NewDataRequest(g endpoint.Getter, log zerolog.Logger) *DataRequest {
	return &DataRequest{
		getter: g,
		log:    log.With().Str("component", "request").Logger(),
		state: State{
			Data:      map[string]json.RawMessage{},
			Timestamp: time.Now(),
		},
	}
}

// Sync fetches endpoints if their key differs from the last synced key, and
// reports whether a fetch cycle ran. It blocks until the cycle finishes.
// A cycle overtaken by a newer one is discarded.
func (r *DataRequest) Sync(ctx context.Context, endpoints Endpoints) bool {
	if len(endpoints) == 0 {
		return false
	}
	key := endpoints.Key()

	r.mu.Lock()
	if r.synced && key == r.lastKey {
		r.mu.Unlock()
		return false
	}
	r.synced = true
	r.lastKey = key
	r.cycle++
	cycle := r.cycle
	r.state.Completed = false
	r.mu.Unlock()

	data, err := Fetch(ctx, r.getter, endpoints)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cycle != r.cycle {
		r.log.Debug().Str("key", key).Msg("discarding superseded fetch")
		return true
	}
	merged := make(map[string]json.RawMessage, len(r.state.Data)+len(data))
	for k, v := range r.state.Data {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	r.state = State{
		Data:      merged,
		Err:       err,
		Completed: true,
		Timestamp: time.Now(),
	}
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("fetch failed")
	}
	return true
}

// State returns a copy of the current request state.
func (r *DataRequest) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := r.state
	snap.Data = make(map[string]json.RawMessage, len(r.state.Data))
	for k, v := range r.state.Data {
		snap.Data[k] = v
	}
	return snap
}
