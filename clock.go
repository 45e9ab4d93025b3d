package ipv4acd

import "time"

// Clock supplies the current time to an ACD. It is injectable so that
// tests can drive the state machine through a deterministic sequence of
// instants instead of real wall-clock time. The default implementation is
// newClock, which prefers a suspend-aware monotonic clock where the
// platform provides one.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by the platform's preferred
// monotonic source (see clock_linux.go and clock_other.go).
type systemClock struct{}

func (systemClock) Now() time.Time { return monotonicNow() }

// newClock returns the default Clock.
func newClock() Clock { return systemClock{} }
