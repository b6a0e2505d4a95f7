package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

// ErrDisconnected is reported through Handlers.OnError when an established
// stream drops.
var ErrDisconnected = errors.New("stream disconnected")

// Handlers receive events for one subscription. Any of them may be nil.
// Implementations never invoke a handler before Subscribe has returned and
// stop dispatching once Close is called; a handler already running when
// Close is called may still complete.
type Handlers struct {
	OnOpen    func()
	OnError   func(error)
	OnMessage func(json.RawMessage)
}

// Subscription is a live server-push channel.
type Subscription interface {
	Close()
}

// Subscriber opens server-push subscriptions to device endpoints.
type Subscriber interface {
	Subscribe(path string, h Handlers) (Subscription, error)
}

// defaultRetryDelay is the pause before resubscribing after a stream ends.
const defaultRetryDelay = time.Second

// SSESubscriber opens server-sent-event streams against the client's base
// URL, sharing its cookie jar so the session credential is attached.
type SSESubscriber struct {
	client *Client
	http   *http.Client
	log    zerolog.Logger
	retry  time.Duration
}

// Ensure SSESubscriber implements Subscriber at compile time.
var _ Subscriber = (*SSESubscriber)(nil)

// NewSSESubscriber builds a subscriber bound to client. Streams are long
// lived, so they use a transport without the REST request timeout.
func NewSSESubscriber(client *Client) *SSESubscriber {
	return &SSESubscriber{
		client: client,
		http:   &http.Client{Jar: client.Jar()},
		log:    client.log.With().Str("component", "sse").Logger(),
		retry:  defaultRetryDelay,
	}
}

// Subscribe connects to path in the background and keeps it connected until
// Close. OnOpen fires when the device accepts a (re)connect, before any
// event is read. Every failed attempt and every end of the stream, clean or
// not, is reported via OnError.
func (s *SSESubscriber) Subscribe(path string, h Handlers) (Subscription, error) {
	target := s.client.Resolve(path)
	log := s.log.With().Str("path", target.Path).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	sub := &sseSubscription{cancel: cancel}

	onError := func(err error) {
		sub.emit(func() {
			if h.OnError != nil {
				h.OnError(err)
			}
		})
	}

	c := sse.NewClient(target.String())
	c.Connection = s.http
	c.Headers["User-Agent"] = s.client.userAgent
	c.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("could not connect to stream: %s", http.StatusText(resp.StatusCode))
		}
		log.Debug().Msg("stream opened")
		sub.emit(func() {
			if h.OnOpen != nil {
				h.OnOpen()
			}
		})
		return nil
	}
	c.ReconnectNotify = func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("stream failed")
		onError(err)
	}

	handler := func(ev *sse.Event) {
		if len(ev.Data) == 0 {
			return
		}
		if !json.Valid(ev.Data) {
			log.Warn().Int("bytes", len(ev.Data)).Msg("dropping non-JSON stream message")
			return
		}
		msg := append(json.RawMessage(nil), ev.Data...)
		sub.emit(func() {
			if h.OnMessage != nil {
				h.OnMessage(msg)
			}
		})
	}

	go func() {
		for {
			// A clean end of stream returns nil without reconnecting, and a
			// failure returns once the reconnect backoff gives up.
			err := c.SubscribeRawWithContext(ctx, handler)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = ErrDisconnected
			}
			log.Debug().Err(err).Dur("retry_in", s.retry).Msg("stream ended")
			onError(err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retry):
			}
		}
	}()
	return sub, nil
}

type sseSubscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
}

func (s *sseSubscription) emit(fn func()) {
	if s.closed.Load() {
		return
	}
	fn()
}

func (s *sseSubscription) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
}
