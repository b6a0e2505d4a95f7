// Package gpio reads and drives the device's GPIO header.
//
// Each pin is reported as a small bitmask: bit 0 is the level (high) and
// bit 1 enables the output driver. The stream sends partial pin maps that
// are merged over the previous ones.
//
// Controller holds the user's pending edits separately from the reported
// states. Only pins marked used are sent, so a command never touches pins
// the user did not select.
package gpio
