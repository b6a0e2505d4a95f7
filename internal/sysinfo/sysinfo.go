package sysinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/request"
	"github.com/five82/pidash/internal/stream"
)

// Device API endpoints.
const (
	Path       = "api/v1/sysinfo"
	StreamPath = "api/v1/sysinfo/stream"
)

// DataLabel is the fetch label of the aggregate snapshot.
const DataLabel = "sysInfoData"

// Endpoints is the fetch set for the one-shot snapshot.
var Endpoints = request.Endpoints{{Label: DataLabel, Path: Path}}

// Fetch reads the aggregate snapshot once.
func Fetch(ctx context.Context, g endpoint.Getter) (stream.Doc, error) {
	data, err := request.Fetch(ctx, g, Endpoints)
	if err != nil {
		return nil, err
	}
	return docFrom(data[DataLabel])
}

// FromState extracts the snapshot from a DataRequest synced with Endpoints.
// It returns nil until the fetch has delivered.
func FromState(st request.State) (stream.Doc, error) {
	raw, ok := st.Data[DataLabel]
	if !ok {
		return nil, nil
	}
	return docFrom(raw)
}

func docFrom(raw json.RawMessage) (stream.Doc, error) {
	d, err := stream.ParseDoc(raw)
	if err != nil {
		return nil, fmt.Errorf("sysinfo snapshot: %w", err)
	}
	return d, nil
}

// Stream follows the telemetry push channel. Messages carrying uptime are
// merged into the time bucket; everything else into the general bucket.
type Stream struct {
	stream *stream.Stream
	gate   *stream.Gate
	log    zerolog.Logger

	mu       sync.RWMutex
	timeData stream.State
	general  stream.State
}

// NewStream returns a disabled Stream seeded from a snapshot. A nil ready
// leaves the stream ungated.
func NewStream(sub endpoint.Subscriber, ready func() bool, seed stream.Doc, log zerolog.Logger) *Stream {
	now := time.Now()
	timeSeed, rest := seed.Split(KeyUptime, KeyLocaltime, KeyStartTime)
	s := &Stream{
		log:      log.With().Str("component", "sysinfo").Logger(),
		timeData: stream.State{Data: timeSeed, Timestamp: now},
		general:  stream.State{Data: rest, Timestamp: now},
	}
	s.stream = stream.New(sub, StreamPath, stream.Events{OnMessage: s.apply}, log)
	s.gate = stream.NewGate(s.stream, ready)
	return s
}

// SetEnabled records whether the caller wants the stream running.
func (s *Stream) SetEnabled(enable bool) {
	s.gate.SetEnabled(enable)
}

// Refresh re-evaluates the readiness gate.
func (s *Stream) Refresh() {
	s.gate.Refresh()
}

// Active reports whether a subscription is open.
func (s *Stream) Active() bool {
	return s.stream.Enabled()
}

// Close tears the stream down.
func (s *Stream) Close() {
	s.stream.Close()
}

// Time returns a copy of the time bucket.
func (s *Stream) Time() stream.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stream.State{Data: s.timeData.Data.Clone(), Timestamp: s.timeData.Timestamp}
}

// General returns a copy of the general bucket.
func (s *Stream) General() stream.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stream.State{Data: s.general.Data.Clone(), Timestamp: s.general.Timestamp}
}

func (s *Stream) apply(raw json.RawMessage) {
	msg, err := stream.ParseDoc(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping sysinfo message")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := stream.State{Timestamp: time.Now()}
	if msg.Has(KeyUptime) {
		next.Data = s.timeData.Data.Merge(msg)
		s.timeData = next
		return
	}
	next.Data = s.general.Data.Merge(msg)
	s.general = next
}
