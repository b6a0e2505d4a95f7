package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to place cards side by side.
	LayoutWideWidth = 120
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 500 * time.Millisecond
)

// barWidth is the width of usage bars in cards.
const barWidth = 20
