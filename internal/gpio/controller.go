package gpio

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/endpoint"
)

// Control is the pending edit for one pin.
type Control struct {
	Used   bool
	Output bool
	High   bool
}

// Flags encodes the edit as a device bitmask.
func (c Control) Flags() Flags {
	var f Flags
	if c.Output {
		f |= FlagOutput
	}
	if c.High {
		f |= FlagHigh
	}
	return f
}

// Field names one switch of a pin control.
type Field int

// Pin control switches.
const (
	FieldUsed Field = iota
	FieldOutput
	FieldHigh
)

// Controller collects pin edits and submits them as one command.
type Controller struct {
	api endpoint.Poster
	log zerolog.Logger

	mu   sync.RWMutex
	pins map[int]Control
}

// NewController returns a Controller with no pending edits.
func NewController(api endpoint.Poster, log zerolog.Logger) *Controller {
	return &Controller{
		api:  api,
		log:  log.With().Str("component", "gpio").Logger(),
		pins: map[int]Control{},
	}
}

// HandleChange replaces the pending edit for pin.
func (c *Controller) HandleChange(pin int, next Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins[pin] = next
}

// Toggle flips one switch of pin the way the control panel does: clearing
// Used also clears Output and High, and Output and High only move while the
// pin is used.
func (c *Controller) Toggle(pin int, field Field) Control {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.pins[pin]
	switch field {
	case FieldUsed:
		if cur.Used {
			cur = Control{}
		} else {
			cur.Used = true
		}
	case FieldOutput:
		if cur.Used {
			cur.Output = !cur.Output
		}
	case FieldHigh:
		if cur.Used {
			cur.High = !cur.High
		}
	}
	c.pins[pin] = cur
	return cur
}

// ControlState returns the pending edit for pin, zero if it has none.
func (c *Controller) ControlState(pin int) Control {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pins[pin]
}

// DisableSubmit reports whether no pin is marked used.
func (c *Controller) DisableSubmit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ctl := range c.pins {
		if ctl.Used {
			return false
		}
	}
	return true
}

// Setting encodes every used pin. Unused pins are omitted.
func (c *Controller) Setting() Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd := Command{}
	for pin, ctl := range c.pins {
		if ctl.Used {
			cmd[strconv.Itoa(pin)] = ctl.Flags()
		}
	}
	return cmd
}

// Submit sends Setting to the device and returns what was sent. Nothing is
// sent when no pin is used. A failed send is logged and returned; the
// pending edits are kept.
func (c *Controller) Submit(ctx context.Context) (Command, error) {
	cmd := c.Setting()
	if len(cmd) == 0 {
		return nil, nil
	}
	if err := SendCommand(ctx, c.api, cmd); err != nil {
		c.log.Warn().Err(err).Msg("gpio submit failed")
		return cmd, err
	}
	c.log.Info().Int("pins", len(cmd)).Msg("gpio command sent")
	return cmd, nil
}
