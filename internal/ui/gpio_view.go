package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pidash/internal/gpio"
)

const headerLabelWidth = 8

// renderGPIO renders the 40-pin header next to the pin controls.
func (m Model) renderGPIO() string {
	g := m.snapshot.GPIO
	styles := m.theme.Styles()
	if !g.Completed && g.Err == nil {
		return styles.MutedText.Render("Waiting for GPIO state...")
	}
	if g.Err != nil && g.UpdatedAt.IsZero() {
		return styles.DangerText.Render("GPIO state unavailable: " + errorText(g.Err))
	}

	header := card(styles, "Header", m.renderHeaderPins(), 0)
	controls := card(styles, "Controls", m.renderPinControls(), 0)
	if m.width-2 >= LayoutWideWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top, header, " ", controls)
	}
	return lipgloss.JoinVertical(lipgloss.Left, controls, header)
}

// renderHeaderPins draws the header in physical order, odd pins on the left.
func (m Model) renderHeaderPins() string {
	styles := m.theme.Styles()
	left, right := gpio.Columns()
	selected := m.selectedPin()

	rows := make([]string, 0, len(left))
	for i := range left {
		l, r := left[i], right[i]
		leftLabel := lipgloss.NewStyle().Width(headerLabelWidth).Align(lipgloss.Right).
			Render(m.headerPinLabel(l, selected))
		rightLabel := lipgloss.NewStyle().Width(headerLabelWidth).
			Render(m.headerPinLabel(r, selected))
		rows = append(rows,
			m.pinState(l)+" "+leftLabel+" "+
				styles.PinStyle(l.Type).Render(fmt.Sprintf("%2d", 2*i+1))+
				styles.PinStyle(r.Type).Render(fmt.Sprintf("%2d", 2*i+2))+" "+
				rightLabel+" "+m.pinState(r))
	}
	return strings.Join(rows, "\n")
}

func (m Model) headerPinLabel(p gpio.HeaderPin, selected int) string {
	styles := m.theme.Styles()
	if p.Type == gpio.PinGPIO && p.GPIO == selected {
		return styles.Cursor.Render(p.Label)
	}
	return styles.MutedText.Render(p.Label)
}

// pinState is the live mode and level of a GPIO pin, blank for others.
func (m Model) pinState(p gpio.HeaderPin) string {
	styles := m.theme.Styles()
	if p.Type != gpio.PinGPIO {
		return strings.Repeat(" ", 5)
	}
	flags, ok := m.snapshot.GPIO.Pins[p.GPIO]
	if !ok {
		return styles.FaintText.Render("  ·  ")
	}
	level := styles.FaintText.Render("L")
	if flags.High() {
		level = styles.SuccessText.Render("H")
	}
	return styles.InfoText.Render(padRight(flags.Mode(), 3)) + " " + level
}

func (m Model) renderPinControls() string {
	g := m.snapshot.GPIO
	styles := m.theme.Styles()
	if len(g.UsablePins) == 0 {
		return styles.FaintText.Render("The device reports no usable pins")
	}

	rows := []string{styles.FaintText.Render("Pin       Now       Used  Output  High")}
	for i, pin := range g.UsablePins {
		ctl := g.Controls[pin]
		now := styles.FaintText.Render(padRight("-", 8))
		if flags, ok := g.Pins[pin]; ok {
			level := "low"
			if flags.High() {
				level = "high"
			}
			now = styles.InfoText.Render(padRight(flags.Mode()+" "+level, 8))
		}
		row := padRight(fmt.Sprintf("GPIO %d", pin), 9) + " " + now + "  " +
			check(styles, ctl.Used) + "   " +
			check(styles, ctl.Output) + "     " +
			check(styles, ctl.High)
		if i == m.pinCursor {
			row = styles.Cursor.Render(styles.AccentText.Render("›") + " " + row)
		} else {
			row = "  " + row
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	if g.CanSubmit {
		rows = append(rows, styles.AccentText.Render("enter")+" "+styles.MutedText.Render("Send command"))
	} else {
		rows = append(rows, styles.FaintText.Render("Mark pins as used to send a command"))
	}
	rows = append(rows, styles.FaintText.Render("u used  o output  space high"))
	return strings.Join(rows, "\n")
}

func check(styles Styles, on bool) string {
	if on {
		return styles.SuccessText.Render("[x]")
	}
	return styles.FaintText.Render("[ ]")
}

// selectedPin returns the GPIO number under the cursor, or -1.
func (m Model) selectedPin() int {
	pins := m.snapshot.GPIO.UsablePins
	if m.pinCursor < 0 || m.pinCursor >= len(pins) {
		return -1
	}
	return pins[m.pinCursor]
}
