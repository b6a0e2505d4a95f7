package gpio

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/request"
	"github.com/five82/pidash/internal/stream"
)

// Device API endpoints.
const (
	Path           = "api/v1/gpio"
	UsablePinsPath = "api/v1/gpio/usable_pins"
	StreamPath     = "api/v1/gpio/stream"
)

// Fetch labels.
const (
	LabelState      = "gpioState"
	LabelUsablePins = "usablePins"
)

// Pin setting flags.
const (
	FlagHigh   Flags = 1 << 0
	FlagOutput Flags = 1 << 1
)

// InfoEndpoints is the fetch set behind the GPIO view.
var InfoEndpoints = request.Endpoints{
	{Label: LabelState, Path: Path},
	{Label: LabelUsablePins, Path: UsablePinsPath},
}

// Flags is the bitmask the device reports and accepts for one pin.
type Flags uint8

// High reports whether the pin level is high.
func (f Flags) High() bool { return f&FlagHigh != 0 }

// Output reports whether the pin drives its level.
func (f Flags) Output() bool { return f&FlagOutput != 0 }

// Mode returns "OUT" or "IN".
func (f Flags) Mode() string {
	if f.Output() {
		return "OUT"
	}
	return "IN"
}

// Pins maps GPIO numbers to their flags.
type Pins map[int]Flags

// Numbers returns the pin numbers in ascending order.
func (p Pins) Numbers() []int {
	nums := make([]int, 0, len(p))
	for n := range p {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// DecodePins reads a pin-state document as sent on the GPIO stream.
func DecodePins(d stream.Doc) (Pins, error) {
	pins, err := stream.Decode[Pins](d)
	if err != nil {
		return nil, fmt.Errorf("decode pin states: %w", err)
	}
	if pins == nil {
		pins = Pins{}
	}
	return pins, nil
}

// Info is the one-shot GPIO snapshot.
type Info struct {
	// State is the raw pin-state document, used to seed the stream.
	State stream.Doc
	// UsablePins are the pins the device lets clients drive.
	UsablePins []int
}

// FetchInfo reads the pin states and usable pins, in that order.
func FetchInfo(ctx context.Context, g endpoint.Getter) (Info, error) {
	data, err := request.Fetch(ctx, g, InfoEndpoints)
	if err != nil {
		return Info{}, err
	}
	return InfoFrom(request.State{Data: data})
}

// InfoFrom extracts Info from a DataRequest synced with InfoEndpoints.
// Missing labels yield zero values.
func InfoFrom(st request.State) (Info, error) {
	var info Info
	if raw, ok := st.Data[LabelState]; ok {
		d, err := stream.ParseDoc(raw)
		if err != nil {
			return Info{}, fmt.Errorf("gpio state: %w", err)
		}
		info.State = d
	}
	if _, err := st.Decode(LabelUsablePins, &info.UsablePins); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Command maps pin numbers, as decimal strings, to the flags to apply.
type Command map[string]Flags

// SendCommand posts a pin command. Pins absent from cmd are left alone.
func SendCommand(ctx context.Context, p endpoint.Poster, cmd Command) error {
	var reply json.RawMessage
	if err := p.Post(ctx, Path, cmd, &reply); err != nil {
		return fmt.Errorf("send gpio command: %w", err)
	}
	return nil
}
