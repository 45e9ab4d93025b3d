package ipv4acd

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/log"
)

// ACD is a single IPv4 Address Conflict Detection instance, bound to one
// (ifindex, mac, candidate address) tuple. The zero value is not usable;
// construct one with New.
//
// An ACD is not safe for concurrent use by multiple goroutines, except for
// Ref and Unref: every state transition, including those driven by the
// reactor, must happen on the reactor's dispatch goroutine.
type ACD struct {
	refs atomic.Int32

	state                State
	ifindex              int
	mac                  net.HardwareAddr
	address              net.IP
	iteration            int
	conflictCount        int
	defendWindowDeadline time.Time

	conn      net.PacketConn
	timer     Handle
	ioWatcher Handle

	reactor         Reactor
	reactorPriority int

	callback Callback
	userdata any

	clock Clock
	rand  randSource
}

// New returns a fresh ACD in StateInit, with one reference held by the
// caller.
func New() *ACD {
	a := &ACD{
		state:   StateInit,
		ifindex: -1,
		clock:   newClock(),
		rand:    defaultRandSource,
	}
	a.refs.Store(1)

	return a
}

// isZeroMAC reports whether mac is the all-zero placeholder address.
func isZeroMAC(mac net.HardwareAddr) bool {
	if len(mac) == 0 {
		return true
	}
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}

	return true
}

// SetIfindex records the interface index an ACD will bind to. It is only
// legal in StateInit.
func (a *ACD) SetIfindex(ifindex int) error {
	if a.state != StateInit {
		return ErrBusy
	}
	if ifindex <= 0 {
		return ErrInvalidIfindex
	}

	a.ifindex = ifindex

	return nil
}

// SetMAC records the hardware address an ACD will probe and announce
// from. It is only legal in StateInit.
func (a *ACD) SetMAC(mac net.HardwareAddr) error {
	if a.state != StateInit {
		return ErrBusy
	}
	if len(mac) != 6 || isZeroMAC(mac) {
		return ErrInvalidMAC
	}

	a.mac = append(net.HardwareAddr(nil), mac...)

	return nil
}

// SetAddress records the candidate IPv4 address an ACD will claim. It is
// only legal in StateInit.
func (a *ACD) SetAddress(addr net.IP) error {
	if a.state != StateInit {
		return ErrBusy
	}

	ip4 := addr.To4()
	if ip4 == nil || ip4.IsUnspecified() {
		return ErrInvalidAddress
	}

	a.address = ip4

	return nil
}

// AttachEvent records the Reactor an ACD will schedule its timer and
// socket watcher on, along with the scheduling priority both are bound
// at. If r is nil, a new default Reactor is created. AttachEvent may only
// be called once per ACD.
func (a *ACD) AttachEvent(r Reactor, priority int) error {
	if a.reactor != nil {
		return ErrBusy
	}

	if r == nil {
		r = NewReactor()
	}

	a.reactor = r
	a.reactorPriority = priority

	return nil
}

// DetachEvent releases a's reference to its Reactor.
func (a *ACD) DetachEvent() {
	a.reactor = nil
}

// SetCallback records the notification sink for BIND/CONFLICT/STOP
// events. Either argument may be nil to disable notifications.
func (a *ACD) SetCallback(cb Callback, userdata any) {
	a.callback = cb
	a.userdata = userdata
}

// SetClock overrides the default monotonic clock. It is only legal in
// StateInit, and exists so tests can drive an ACD through a deterministic
// sequence of instants.
func (a *ACD) SetClock(c Clock) error {
	if a.state != StateInit {
		return ErrBusy
	}

	a.clock = c

	return nil
}

// SetRandSource overrides the default source of the U[0, n) draws used to
// jitter RFC 5227's randomized delays. It is only legal in StateInit.
func (a *ACD) SetRandSource(r func(n int64) int64) error {
	if a.state != StateInit {
		return ErrBusy
	}

	a.rand = r

	return nil
}

// Start opens a raw ARP socket bound to the configured interface, then,
// on the Reactor's dispatch goroutine, registers it and an immediate
// (zero-delay) timer and transitions to StateStarted. ifindex, MAC,
// address and a Reactor must all have been configured first.
func (a *ACD) Start() error {
	if a.state != StateInit {
		return ErrBusy
	}
	if a.reactor == nil || a.ifindex <= 0 || a.address == nil || isZeroMAC(a.mac) {
		return ErrNotConfigured
	}

	conn, err := openRawARPSocket(a.ifindex)
	if err != nil {
		return err
	}

	// startOnDispatch touches the same fields onTimeout/onPacket do, so it
	// must run on the Reactor's dispatch goroutine rather than here: doing
	// the registration from the caller's goroutine would race the
	// dispatch goroutine the moment the zero-delay timer or the IO reader
	// posts its first callback.
	errCh := make(chan error, 1)
	a.reactor.Do(func() {
		errCh <- a.startOnDispatch(conn)
	})

	if err := <-errCh; err != nil {
		return err
	}

	log.Info("ipv4acd: started for %s on ifindex %d", a.address, a.ifindex)

	return nil
}

// startOnDispatch performs the state-mutating half of Start: it must only
// ever run on the Reactor's dispatch goroutine.
func (a *ACD) startOnDispatch(conn net.PacketConn) error {
	a.defendWindowDeadline = time.Time{}
	a.setState(StateStarted, true)
	a.conn = conn

	ioWatcher, err := a.reactor.AddIO(conn, a.reactorPriority, "ipv4acd-receive", a.onIOEvent)
	if err != nil {
		a.reset()
		return err
	}
	a.ioWatcher = ioWatcher

	if err := a.setNextWakeup(0, 0); err != nil {
		a.reset()
		return err
	}

	return nil
}

// Stop resets a to StateInit, releasing its socket, timer and watcher, and
// delivers EventStop. A fatal send or receive error also ends in Stop. Stop
// is always safe to call, including when a is already in StateInit.
func (a *ACD) Stop() {
	a.reset()
	log.Info("ipv4acd: stopped")
	a.notify(EventStop)
}

// IsRunning reports whether a is anywhere other than StateInit.
func (a *ACD) IsRunning() bool {
	return a.state != StateInit
}

// Ref increments a's reference count and returns a, so that a second
// owner can hold a reference across an async boundary, such as a client
// that wants its ACD to survive a CONFLICT callback calling Unref.
func (a *ACD) Ref() *ACD {
	a.refs.Add(1)
	return a
}

// Unref decrements a's reference count. When it reaches zero, a is reset
// to StateInit and detached from its Reactor; the caller must not use a
// afterwards.
func (a *ACD) Unref() {
	if a.refs.Add(-1) == 0 {
		a.reset()
		a.DetachEvent()
	}
}
