//go:build !linux

package ipv4acd

import "time"

// monotonicNow falls back to time.Now on platforms without CLOCK_BOOTTIME.
// time.Now's monotonic reading is not suspend-aware, but it is the best
// portable approximation.
func monotonicNow() time.Time {
	return time.Now()
}
