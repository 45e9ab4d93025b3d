//go:build linux

package ipv4acd

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonicNow returns CLOCK_BOOTTIME, which unlike CLOCK_MONOTONIC keeps
// advancing across a suspend/resume cycle, so a defend timer isn't
// shortened by a suspend. If the clock is unavailable for any reason
// (older kernels lacking CLOCK_BOOTTIME support in some containers), fall
// back to time.Now, whose monotonic reading is adequate though not
// suspend-aware.
//
// The time.Time this returns carries no monotonic reading and its wall
// clock sits near the boot time, not the calendar; it is only ever safe to
// compare against another value from the same Clock (see
// defendWindowDeadline in state.go), never against time.Now or a
// Reactor-scheduled deadline.
func monotonicNow() time.Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return time.Now()
	}

	return time.Unix(ts.Sec, ts.Nsec)
}
