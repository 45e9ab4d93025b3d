package ipv4acd

import (
	"time"

	"github.com/AdguardTeam/golibs/log"
)

// State is one of the seven states of the ACD automaton.
type State int

const (
	StateInit State = iota
	StateStarted
	StateWaitingProbe
	StateProbing
	StateWaitingAnnounce
	StateAnnouncing
	StateRunning
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStarted:
		return "STARTED"
	case StateWaitingProbe:
		return "WAITING_PROBE"
	case StateProbing:
		return "PROBING"
	case StateWaitingAnnounce:
		return "WAITING_ANNOUNCE"
	case StateAnnouncing:
		return "ANNOUNCING"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// setState transitions a to st: iteration resets to 0 on a state change,
// and increments on re-entry into the same state unless reset is also
// requested.
func (a *ACD) setState(st State, reset bool) {
	if st == a.state && !reset {
		a.iteration++
		return
	}

	log.Debug("ipv4acd: %s -> %s", a.state, st)
	a.state = st
	a.iteration = 0
}

// releaseTimer cancels a's pending timer, if any. Only one timer is ever
// live per instance; scheduling a new one replaces and cancels the prior.
func (a *ACD) releaseTimer() {
	if a.timer == nil {
		return
	}

	a.timer.Release()
	a.timer = nil
}

// setNextWakeup arms a new timer to fire after base, plus a uniform jitter
// in [0, spread), releasing whatever timer was previously pending. The
// delay is relative, not an absolute deadline computed from a.clock: the
// Reactor's timer and a.clock are not guaranteed to share a time base (see
// clock_linux.go), so the two must never be mixed in a single comparison.
func (a *ACD) setNextWakeup(base, spread time.Duration) error {
	delay := jitter(a.rand, base, spread)

	a.releaseTimer()

	h, err := a.reactor.AddTimer(delay, a.reactorPriority, "ipv4acd-timer", a.onTimeout)
	if err != nil {
		return err
	}

	a.timer = h

	return nil
}

// onTimeout is the callback bound to a's pending timer. It implements the
// per-state timeout transitions of the ACD automaton.
func (a *ACD) onTimeout() {
	// The timer that just fired was one-shot and has already consumed
	// itself; drop the stale handle before any branch below arms a new
	// one (or leaves none pending, entering RUNNING).
	a.timer = nil

	switch a.state {
	case StateStarted:
		a.setState(StateWaitingProbe, true)

		if a.conflictCount >= maxConflicts {
			log.Info("ipv4acd: %s: max conflicts reached, delaying %s", a.address, rateLimitInterval)

			if err := a.setNextWakeup(rateLimitInterval, probeWait); err != nil {
				a.onFatal(err)
				return
			}
			a.conflictCount = 0
		} else if err := a.setNextWakeup(0, probeWait); err != nil {
			a.onFatal(err)
			return
		}

	case StateWaitingProbe, StateProbing:
		if _, err := sendProbe(a.conn, a.mac, a.address); err != nil {
			a.onFatal(err)
			return
		}
		log.Debug("ipv4acd: probing %s", a.address)

		if a.iteration < probeNum-2 {
			a.setState(StateProbing, false)
			if err := a.setNextWakeup(probeMin, probeMax-probeMin); err != nil {
				a.onFatal(err)
				return
			}
		} else {
			a.setState(StateWaitingAnnounce, true)
			if err := a.setNextWakeup(announceWait, 0); err != nil {
				a.onFatal(err)
				return
			}
		}

	case StateAnnouncing:
		if a.iteration >= announceNum-1 {
			a.setState(StateRunning, false)
			return
		}
		fallthrough

	case StateWaitingAnnounce:
		if _, err := sendAnnouncement(a.conn, a.mac, a.address); err != nil {
			a.onFatal(err)
			return
		}
		log.Info("ipv4acd: announcing %s", a.address)

		a.setState(StateAnnouncing, false)
		if err := a.setNextWakeup(announceInterval, 0); err != nil {
			a.onFatal(err)
			return
		}

		if a.iteration == 0 {
			a.conflictCount = 0
			a.notify(EventBind)
		}
	}
}

// onIOEvent is the callback bound to a's socket watcher. buf is nil and
// err non-nil for fatal read errors; otherwise buf holds one received raw
// frame, which onIOEvent decodes and passes through the software filter of
// matchesFilter before handing it to onPacket.
func (a *ACD) onIOEvent(buf []byte, err error) {
	if err != nil {
		a.onFatal(err)
		return
	}

	p, decodeErr := decodeARPFrame(buf)
	if decodeErr != nil {
		// Non-ARP EtherType, or a frame shorter than arpFrameLen: drop
		// silently.
		return
	}

	if !matchesFilter(p, a.address, a.mac) {
		return
	}

	a.onPacket(p)
}

// onPacket implements the per-state packet-received transitions of the ACD
// automaton.
func (a *ACD) onPacket(p *arpPacket) {
	switch a.state {
	case StateWaitingProbe, StateProbing, StateWaitingAnnounce:
		// The filter has already screened out everything but a
		// potential conflict; any frame reaching here in these states
		// is treated as one, regardless of isConflict.
		a.onConflict()

	case StateAnnouncing, StateRunning:
		if !isConflict(p, a.address) {
			return
		}

		now := a.clock.Now()
		if now.After(a.defendWindowDeadline) {
			a.defendWindowDeadline = now.Add(defendInterval)
			if _, err := sendAnnouncement(a.conn, a.mac, a.address); err != nil {
				a.onFatal(err)
				return
			}
			log.Info("ipv4acd: defending %s", a.address)
		} else {
			a.onConflict()
		}
	}
}

// onConflict implements the shared conflict handler.
func (a *ACD) onConflict() {
	a.conflictCount++
	log.Info("ipv4acd: conflict on %s (%d)", a.address, a.conflictCount)

	a.reset()
	a.notify(EventConflict)
}

// onFatal is the sole running-state failure escalation path: a fatal send
// or receive error is logged and treated exactly like a client-initiated
// Stop.
func (a *ACD) onFatal(err error) {
	log.Error("ipv4acd: %s: fatal error, stopping: %s", a.address, err)
	a.Stop()
}

// reset releases the timer, socket watcher and socket, in that order, and
// returns a to StateInit. It does not touch conflictCount, so that a
// client observing EventConflict can inspect it, and so that the rate
// limiter in onTimeout's StateStarted branch sees counts accumulated
// across prior failed attempts.
func (a *ACD) reset() {
	a.releaseTimer()

	if a.ioWatcher != nil {
		a.ioWatcher.Release()
		a.ioWatcher = nil
	}

	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}

	a.setState(StateInit, true)
}
