package ipv4acd

import (
	"net"
	"testing"
	"time"
)

func TestNewIsUsable(t *testing.T) {
	a := New()

	if want, got := StateInit, a.state; want != got {
		t.Fatalf("unexpected initial state: %v != %v", want, got)
	}
	if a.IsRunning() {
		t.Fatal("a freshly constructed ACD should not be running")
	}
}

func TestSetIfindex(t *testing.T) {
	var tests = []struct {
		desc    string
		ifindex int
		wantErr error
	}{
		{desc: "zero", ifindex: 0, wantErr: ErrInvalidIfindex},
		{desc: "negative", ifindex: -1, wantErr: ErrInvalidIfindex},
		{desc: "valid", ifindex: 2, wantErr: nil},
	}

	for i, tt := range tests {
		a := New()
		if want, got := tt.wantErr, a.SetIfindex(tt.ifindex); want != got {
			t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, want, got)
		}
	}
}

func TestSetIfindexRejectsAfterStart(t *testing.T) {
	a := New()
	a.state = StateRunning

	if want, got := ErrBusy, a.SetIfindex(1); want != got {
		t.Fatalf("unexpected error: %v != %v", want, got)
	}
}

func TestSetMAC(t *testing.T) {
	var tests = []struct {
		desc    string
		mac     net.HardwareAddr
		wantErr error
	}{
		{desc: "nil", mac: nil, wantErr: ErrInvalidMAC},
		{desc: "wrong length", mac: net.HardwareAddr{1, 2, 3}, wantErr: ErrInvalidMAC},
		{desc: "all zero", mac: net.HardwareAddr{0, 0, 0, 0, 0, 0}, wantErr: ErrInvalidMAC},
		{desc: "valid", mac: testMAC, wantErr: nil},
	}

	for i, tt := range tests {
		a := New()
		if want, got := tt.wantErr, a.SetMAC(tt.mac); want != got {
			t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, want, got)
		}
	}
}

func TestSetAddress(t *testing.T) {
	var tests = []struct {
		desc    string
		addr    net.IP
		wantErr error
	}{
		{desc: "nil", addr: nil, wantErr: ErrInvalidAddress},
		{desc: "unspecified", addr: net.IPv4zero, wantErr: ErrInvalidAddress},
		{desc: "ipv6", addr: net.ParseIP("::1"), wantErr: ErrInvalidAddress},
		{desc: "valid", addr: testAddr, wantErr: nil},
	}

	for i, tt := range tests {
		a := New()
		if want, got := tt.wantErr, a.SetAddress(tt.addr); want != got {
			t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, want, got)
		}
	}
}

func TestAttachEventOnlyOnce(t *testing.T) {
	a := New()

	if err := a.AttachEvent(&recordingReactor{}, 0); err != nil {
		t.Fatalf("unexpected error on first attach: %v", err)
	}
	if want, got := ErrBusy, a.AttachEvent(&recordingReactor{}, 0); want != got {
		t.Fatalf("unexpected error on second attach: %v != %v", want, got)
	}
}

func TestStartRequiresFullConfiguration(t *testing.T) {
	a := New()
	a.reactor = &recordingReactor{}
	// ifindex, mac and address are all still unset.

	if want, got := ErrNotConfigured, a.Start(); want != got {
		t.Fatalf("unexpected error: %v != %v", want, got)
	}
}

func TestStopFromInitIsSafe(t *testing.T) {
	a := New()

	var events []Event
	a.SetCallback(func(a *ACD, e Event, _ any) { events = append(events, e) }, nil)

	a.Stop()

	if want, got := StateInit, a.state; want != got {
		t.Fatalf("unexpected state: %v != %v", want, got)
	}
	if want, got := []Event{EventStop}, events; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("unexpected events: %v != %v", want, got)
	}
}

// TestStartOnDispatchSerializesAgainstDispatch exercises startOnDispatch
// (the half of Start that registers the IO watcher and the zero-delay
// timer) against a real eventReactor rather than recordingReactor, run the
// same way Start runs it: posted through Do. If startOnDispatch ran on the
// caller's goroutine instead, the zero-delay timer it arms could fire and
// run onTimeout concurrently with it, racing the very fields it sets.
func TestStartOnDispatchSerializesAgainstDispatch(t *testing.T) {
	r := NewReactor()
	defer r.Close()

	a := New()
	a.ifindex = 1
	a.mac = testMAC
	a.address = testAddr
	a.reactor = r
	// The initial zero-delay wakeup has no spread to jitter, but the one
	// armed on entering StateWaitingProbe does (up to probeWait); pin the
	// jitter near the top of that range so the state is observable for
	// close to a full second instead of racing straight through it.
	a.rand = func(n int64) int64 { return n - 1 }

	conn := newFakePacketConn()

	errCh := make(chan error, 1)
	r.Do(func() { errCh <- a.startOnDispatch(conn) })
	if err := <-errCh; err != nil {
		t.Fatalf("startOnDispatch error: %v", err)
	}

	// Every read of a's state below is done by posting onto the dispatch
	// goroutine with Do, rather than reading a.state/a.timer directly from
	// this goroutine, since only the dispatch goroutine may touch them.
	type snapshot struct {
		state     State
		timer     Handle
		ioWatcher Handle
	}
	snapshotCh := make(chan snapshot, 1)
	take := func() snapshot {
		r.Do(func() {
			snapshotCh <- snapshot{state: a.state, timer: a.timer, ioWatcher: a.ioWatcher}
		})
		return <-snapshotCh
	}

	deadline := time.Now().Add(time.Second)
	var got snapshot
	for time.Now().Before(deadline) {
		got = take()
		if got.state == StateWaitingProbe {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if want := StateWaitingProbe; got.state != want {
		t.Fatalf("unexpected final state: %v != %v", want, got.state)
	}
	if got.timer == nil {
		t.Fatal("a should have a pending timer after reaching StateWaitingProbe")
	}
	if got.ioWatcher == nil {
		t.Fatal("a should have a registered io watcher")
	}
}

func TestRefUnref(t *testing.T) {
	a := New()
	a.reactor = &recordingReactor{}

	a.Ref()
	a.Unref()
	if want, got := StateInit, a.state; want != got {
		t.Fatalf("unexpected state after balanced ref/unref: %v != %v", want, got)
	}

	a.setState(StateRunning, true)
	a.Unref()
	if want, got := StateInit, a.state; want != got {
		t.Fatalf("final unref should have reset the ACD: %v != %v", want, got)
	}
}
