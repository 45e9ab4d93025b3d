package ipv4acd

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/log"
)

// Handle is returned by Reactor.AddTimer and Reactor.AddIO. Releasing a
// Handle cancels the timer or deregisters the watcher it represents.
// setNextWakeup always releases any previously held timer handle before
// creating a new one, so at most one timer is ever live per ACD.
type Handle interface {
	Release()
}

// Reactor abstracts the two event sources an ACD needs: one-shot timers and
// persistent readable-watchers on a socket. Both must be bound at the given
// priority, and both should carry desc for diagnostics.
//
// A Reactor implementation must serialize every callback it invokes onto a
// single goroutine, so that an ACD's state never needs internal locking.
type Reactor interface {
	// AddTimer schedules cb to run once, after delay elapses.
	AddTimer(delay time.Duration, priority int, desc string, cb func()) (Handle, error)

	// AddIO registers a persistent watcher on conn. cb is invoked with the
	// bytes of each frame read from conn (or a non-nil err if reading
	// failed fatally); invocations are serialized with timer callbacks
	// from the same Reactor.
	AddIO(conn net.PacketConn, priority int, desc string, cb func(buf []byte, err error)) (Handle, error)

	// Do runs fn on the Reactor's dispatch goroutine, the same goroutine
	// every timer and IO callback runs on. Code outside those callbacks,
	// such as a signal handler or Start, must go through Do rather than
	// touching an attached ACD's fields directly, since they are only
	// safe to read or write from the dispatch goroutine.
	Do(fn func())
}

// eventReactor is the default Reactor: a single dispatch goroutine that
// runs every timer and IO callback in the order their events arrive on an
// internal channel. IO sources are read on their own goroutine (blocking
// ReadFrom), which only ever forwards the raw bytes it reads onto the
// dispatch channel; it never calls back into client code directly.
type eventReactor struct {
	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewReactor returns a Reactor whose dispatch loop runs until Close is
// called. A single Reactor may be shared by multiple ACD instances, each
// attached to it with its own AttachEvent call.
func NewReactor() *eventReactor {
	r := &eventReactor{
		events: make(chan func(), 8),
		done:   make(chan struct{}),
	}
	go r.run()

	return r
}

func (r *eventReactor) run() {
	for {
		select {
		case fn := <-r.events:
			fn()
		case <-r.done:
			return
		}
	}
}

// Close stops the dispatch loop. Pending timers and IO watchers are left
// to their own cancellation; Close does not release them.
func (r *eventReactor) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

func (r *eventReactor) post(fn func()) {
	select {
	case r.events <- fn:
	case <-r.done:
	}
}

// Do implements Reactor.
func (r *eventReactor) Do(fn func()) {
	r.post(fn)
}

type timerHandle struct {
	timer    *time.Timer
	canceled *atomic.Bool
}

func (h *timerHandle) Release() {
	h.canceled.Store(true)
	h.timer.Stop()
}

// AddTimer implements Reactor.
func (r *eventReactor) AddTimer(delay time.Duration, priority int, desc string, cb func()) (Handle, error) {
	var canceled atomic.Bool

	t := time.AfterFunc(delay, func() {
		if canceled.Load() {
			return
		}
		r.post(cb)
	})

	log.Debug("ipv4acd: reactor: armed timer %q at priority %d, fires in %s", desc, priority, delay)

	return &timerHandle{timer: t, canceled: &canceled}, nil
}

type ioHandle struct {
	conn     net.PacketConn
	canceled *atomic.Bool
}

func (h *ioHandle) Release() {
	h.canceled.Store(true)
	// Unblock the reader goroutine's in-flight ReadFrom without closing
	// the socket, which remains owned by the caller.
	_ = h.conn.SetReadDeadline(time.Now())
}

// AddIO implements Reactor.
func (r *eventReactor) AddIO(conn net.PacketConn, priority int, desc string, cb func(buf []byte, err error)) (Handle, error) {
	var canceled atomic.Bool

	go func() {
		buf := make([]byte, 128)
		for {
			n, _, err := conn.ReadFrom(buf)
			if canceled.Load() {
				return
			}
			if err != nil {
				r.post(func() { cb(nil, err) })
				return
			}

			cp := make([]byte, n)
			copy(cp, buf[:n])
			r.post(func() { cb(cp, nil) })
		}
	}()

	log.Debug("ipv4acd: reactor: registered io watcher %q at priority %d", desc, priority)

	return &ioHandle{conn: conn, canceled: &canceled}, nil
}
