package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sub      Subscription
	mu       sync.Mutex
	opens    int
	errs     []error
	messages []string
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnOpen: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opens++
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnMessage: func(msg json.RawMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, string(msg))
		},
	}
}

func (r *recorder) snapshot() (int, int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens, len(r.errs), append([]string(nil), r.messages...)
}

func (r *recorder) errList() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// streamHeaders starts an event stream response.
func streamHeaders(t *testing.T, w http.ResponseWriter) http.Flusher {
	t.Helper()
	flusher, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("response writer cannot flush")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher
}

func subscribe(t *testing.T, url string, retry time.Duration) *recorder {
	t.Helper()
	client, err := NewClient(url)
	require.NoError(t, err)
	subscriber := NewSSESubscriber(client)
	subscriber.retry = retry

	rec := &recorder{}
	sub, err := subscriber.Subscribe("api/v1/heartbeat", rec.handlers())
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	rec.sub = sub
	return rec
}

func TestSSESubscriber_DeliversMessages(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/gpio/stream" {
			http.NotFound(w, r)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "no flush", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for _, payload := range []string{`{"2":3}`, `not json`, `{"4":1}`} {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	rec := &recorder{}
	sub, err := NewSSESubscriber(client).Subscribe("api/v1/gpio/stream", rec.handlers())
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	require.Eventually(t, func() bool {
		_, _, msgs := rec.snapshot()
		return len(msgs) == 2
	}, 3*time.Second, 10*time.Millisecond)

	opens, _, msgs := rec.snapshot()
	assert.Equal(t, 1, opens)
	assert.JSONEq(t, `{"2":3}`, msgs[0])
	assert.JSONEq(t, `{"4":1}`, msgs[1])
}

func TestSSESubscriber_CloseStopsDispatch(t *testing.T) {
	sub := &sseSubscription{cancel: func() {}}
	called := false
	sub.Close()
	sub.Close()
	sub.emit(func() { called = true })
	assert.False(t, called)
}

func TestSSESubscriber_OpenWithoutEvents(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHeaders(t, w)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	rec := subscribe(t, server.URL, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		opens, _, _ := rec.snapshot()
		return opens == 1
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	opens, errs, msgs := rec.snapshot()
	assert.Equal(t, 1, opens)
	assert.Zero(t, errs)
	assert.Empty(t, msgs)
}

func TestSSESubscriber_CleanCloseReportsAndResubscribes(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		flusher := streamHeaders(t, w)
		_, _ = fmt.Fprint(w, "data: {}\n\n")
		flusher.Flush()
	}))
	t.Cleanup(server.Close)

	rec := subscribe(t, server.URL, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		opens, errs, msgs := rec.snapshot()
		return opens >= 2 && errs >= 1 && len(msgs) >= 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, rec.errList()[0], ErrDisconnected)

	rec.sub.Close()
	time.Sleep(50 * time.Millisecond)
	settled := hits.Load()
	opens, errs, _ := rec.snapshot()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, hits.Load(), "resubscribed after Close")
	gotOpens, gotErrs, _ := rec.snapshot()
	assert.Equal(t, opens, gotOpens)
	assert.Equal(t, errs, gotErrs)
}

func TestSSESubscriber_RejectedConnectReportsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	rec := subscribe(t, server.URL, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, errs, _ := rec.snapshot()
		return errs >= 1
	}, 3*time.Second, 10*time.Millisecond)

	opens, _, _ := rec.snapshot()
	assert.Zero(t, opens)
	assert.False(t, errors.Is(rec.errList()[0], ErrDisconnected))
	assert.ErrorContains(t, rec.errList()[0], "Unauthorized")
}
