package sysinfo

import (
	"fmt"
	"time"
)

// Placeholder stands in for a value the device has not reported.
const Placeholder = "—"

const (
	bytesPerKB = 1000
	bytesPerMB = 1000 * bytesPerKB
	bytesPerGB = 1000 * bytesPerMB
	bytesPerTB = 1000 * bytesPerGB
)

// FormatBytes scales a byte count to the largest decimal unit it reaches.
func FormatBytes(v float64) (float64, string) {
	switch {
	case v >= bytesPerTB:
		return v / bytesPerTB, "TB"
	case v >= bytesPerGB:
		return v / bytesPerGB, "GB"
	case v >= bytesPerMB:
		return v / bytesPerMB, "MB"
	case v >= bytesPerKB:
		return v / bytesPerKB, "kb"
	}
	return v, "Bytes"
}

// BytesString renders FormatBytes with two decimals.
func BytesString(v float64) string {
	value, unit := FormatBytes(v)
	return fmt.Sprintf("%.2f %s", value, unit)
}

// MegabytesString renders a size reported in megabytes.
func MegabytesString(mb float64) string {
	return BytesString(mb * bytesPerMB)
}

// FormatDuration renders whole seconds as "D d HH h MM m", "HH h MM m SS s"
// or "MM m SS s", whichever is the coarsest non-zero form.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	secs := seconds % 60
	mins := seconds / 60 % 60
	hours := seconds / 3600 % 24
	days := seconds / 86400

	switch {
	case days > 0:
		return fmt.Sprintf("%d d %02d h %02d m", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%02d h %02d m %02d s", hours, mins, secs)
	}
	return fmt.Sprintf("%02d m %02d s", mins, secs)
}

// FormatUptime renders the device uptime.
func FormatUptime(uptime *float64) string {
	if uptime == nil {
		return Placeholder
	}
	return FormatDuration(int64(*uptime))
}

// FormatStartTime renders how long ago start was, as of now.
func FormatStartTime(start *time.Time, now time.Time) string {
	if start == nil {
		return Placeholder
	}
	return FormatDuration(int64(now.Sub(*start) / time.Second))
}

// FormatCPUTemp renders a temperature in degrees Celsius.
func FormatCPUTemp(temp *float64) string {
	if temp == nil {
		return Placeholder + " ℃"
	}
	return fmt.Sprintf("%.2f ℃", *temp)
}

// FormatLocaltime returns the date and time lines for the device clock.
func FormatLocaltime(t *time.Time) (date, clock string) {
	if t == nil {
		return "Local Time", Placeholder
	}
	return t.Format("Mon, January 2, 2006"), t.Format("15:04:05")
}

// CPUUsage sums [usage, total] pairs and returns usage/total as a fraction.
// Malformed pairs are skipped; no samples yields 0.
func CPUUsage(usages [][]float64) float64 {
	var used, total float64
	for _, pair := range usages {
		if len(pair) < 2 {
			continue
		}
		used += pair[0]
		total += pair[1]
	}
	if total <= 0 {
		return 0
	}
	return used / total
}
