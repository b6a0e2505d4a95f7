package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/state"
)

const defaultPumpInterval = 500 * time.Millisecond

// Snapshotter builds a fresh view of the live session.
type Snapshotter interface {
	Snapshot() (state.Snapshot, error)
}

// StartPump launches a background goroutine that copies the session into the
// store at a fixed cadence. It returns immediately.
func StartPump(ctx context.Context, store *state.Store, src Snapshotter, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultPumpInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastErr string
		for {
			lastErr = refresh(store, src, log, lastErr)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// refresh performs one copy. Repeated identical errors are logged once.
func refresh(store *state.Store, src Snapshotter, log zerolog.Logger, lastErr string) string {
	snap, err := src.Snapshot()
	store.Update(snap, err)
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != lastErr {
		log.Warn().Err(err).Msg("snapshot decode failed")
		return msg
	}
	return lastErr
}
