package ipv4acd

import (
	"math/rand"
	"time"
)

// Timing parameters from RFC 5227 §2.1.1. Values are expressed as
// time.Duration rather than raw microseconds.
const (
	// probeWait is the upper bound of the initial random delay before the
	// first probe.
	probeWait = 1 * time.Second

	// probeNum is the number of probes sent before announcing.
	probeNum = 3

	// probeMin and probeMax bound the random spacing between probes.
	probeMin = 1 * time.Second
	probeMax = 2 * time.Second

	// announceWait is the delay from the last probe to the first
	// announcement.
	announceWait = 2 * time.Second

	// announceNum is the number of announcements sent when claiming the
	// address.
	announceNum = 2

	// announceInterval is the spacing between announcements.
	announceInterval = 2 * time.Second

	// maxConflicts is the number of conflicts, observed across attempts,
	// at or above which rate limiting applies.
	maxConflicts = 10

	// rateLimitInterval is the cool-down inserted once maxConflicts is
	// reached.
	rateLimitInterval = 60 * time.Second

	// defendInterval is the minimum gap between successive defensive
	// announcements.
	defendInterval = 10 * time.Second
)

// randSource draws a pseudo-random, non-negative integer less than n in
// [0, n). It is injectable on *ACD so tests can pin the jitter applied to
// RFC 5227's randomized delays; the default draws from math/rand's shared
// source.
type randSource func(n int64) int64

// jitter returns base plus a uniform draw in [0, spread) using r. If spread
// is zero, no randomness is added.
func jitter(r randSource, base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}

	return base + time.Duration(r(int64(spread)))
}

// defaultRandSource is the randSource every ACD uses unless SetRandSource
// overrides it: a uniform draw in [0, n) from math/rand's top-level,
// auto-seeded source.
func defaultRandSource(n int64) int64 {
	return rand.Int63n(n)
}
