package devicetest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/five82/pidash/internal/endpoint"
)

// Subscriber is an in-memory endpoint.Subscriber. It records every
// subscription it opens and lets tests push events into the most recent
// one, the way a browser EventSource mock would.
type Subscriber struct {
	mu     sync.Mutex
	subs   []*Subscription
	events []string
	err    error
}

// Ensure Subscriber implements endpoint.Subscriber at compile time.
var _ endpoint.Subscriber = (*Subscriber)(nil)

// Subscription is one handle opened by Subscriber.
type Subscription struct {
	owner    *Subscriber
	Path     string
	handlers endpoint.Handlers

	mu     sync.Mutex
	closes int
}

// FailWith makes subsequent Subscribe calls fail with err.
func (s *Subscriber) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Subscribe records a new subscription.
func (s *Subscriber) Subscribe(path string, h endpoint.Handlers) (endpoint.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sub := &Subscription{owner: s, Path: path, handlers: h}
	s.subs = append(s.subs, sub)
	s.events = append(s.events, "open:"+path)
	return sub, nil
}

// Opens returns how many subscriptions were opened.
func (s *Subscriber) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Closes returns how many subscriptions were closed.
func (s *Subscriber) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sub := range s.subs {
		total += sub.CloseCount()
	}
	return total
}

// Log returns the open/close history in order.
func (s *Subscriber) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Paths returns the path of every subscription in open order.
func (s *Subscriber) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, len(s.subs))
	for i, sub := range s.subs {
		paths[i] = sub.Path
	}
	return paths
}

// Last returns the most recent subscription, or nil.
func (s *Subscriber) Last() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	return s.subs[len(s.subs)-1]
}

// LastFor returns the most recent subscription opened on path, or nil.
func (s *Subscriber) LastFor(path string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.subs) - 1; i >= 0; i-- {
		if s.subs[i].Path == path {
			return s.subs[i]
		}
	}
	return nil
}

// OpensFor returns how many subscriptions were opened on path.
func (s *Subscriber) OpensFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.Path == path {
			n++
		}
	}
	return n
}

// Close records the close. The handle still accepts Emit calls afterwards
// so tests can simulate late deliveries.
func (sub *Subscription) Close() {
	sub.mu.Lock()
	sub.closes++
	sub.mu.Unlock()

	sub.owner.mu.Lock()
	sub.owner.events = append(sub.owner.events, "close:"+sub.Path)
	sub.owner.mu.Unlock()
}

// CloseCount returns how many times Close was called on this handle.
func (sub *Subscription) CloseCount() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.closes
}

// Open fires the transport open event.
func (sub *Subscription) Open() {
	if sub.handlers.OnOpen != nil {
		sub.handlers.OnOpen()
	}
}

// Fail fires the transport error event.
func (sub *Subscription) Fail(err error) {
	if sub.handlers.OnError != nil {
		sub.handlers.OnError(err)
	}
}

// Emit delivers v, JSON-encoded, as a message.
func (sub *Subscription) Emit(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("devicetest: encode message: %v", err))
	}
	sub.EmitRaw(raw)
}

// EmitRaw delivers raw bytes as a message.
func (sub *Subscription) EmitRaw(raw []byte) {
	if sub.handlers.OnMessage != nil {
		sub.handlers.OnMessage(json.RawMessage(raw))
	}
}
