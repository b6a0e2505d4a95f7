package gpio

import "strconv"

// PinType classifies a header pin.
type PinType string

// Header pin types.
const (
	PinPower  PinType = "power"
	PinGround PinType = "ground"
	PinGPIO   PinType = "gpio"
	PinMisc   PinType = "misc"
)

// HeaderPin is one physical pin of the 40-pin header.
type HeaderPin struct {
	Label string
	Type  PinType
	// GPIO is the BCM number; only meaningful when Type is PinGPIO.
	GPIO int
}

func power(label string) HeaderPin { return HeaderPin{Label: label, Type: PinPower} }
func ground() HeaderPin            { return HeaderPin{Label: "GND", Type: PinGround} }
func misc(label string) HeaderPin  { return HeaderPin{Label: label, Type: PinMisc} }

func bcm(n int) HeaderPin {
	return HeaderPin{Label: "GPIO " + strconv.Itoa(n), Type: PinGPIO, GPIO: n}
}

// Layout lists the header in physical order: odd pins at even indexes,
// even pins at odd indexes.
var Layout = []HeaderPin{
	power("3V3"), power("5V"),
	bcm(2), power("5V"),
	bcm(3), ground(),
	bcm(4), misc("UART TX"),
	ground(), misc("UART RX"),
	bcm(17), bcm(18),
	bcm(27), ground(),
	bcm(22), bcm(23),
	power("3V3"), bcm(24),
	bcm(10), ground(),
	bcm(9), bcm(25),
	bcm(11), bcm(8),
	ground(), bcm(7),
	bcm(0), bcm(1),
	bcm(5), ground(),
	bcm(6), bcm(12),
	bcm(13), ground(),
	bcm(19), bcm(16),
	bcm(26), bcm(20),
	ground(), bcm(21),
}

// Columns splits Layout into the odd-pin and even-pin columns.
func Columns() (left, right []HeaderPin) {
	for i, p := range Layout {
		if i%2 == 0 {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return left, right
}
