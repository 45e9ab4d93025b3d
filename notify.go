package ipv4acd

// Event identifies a notification an ACD delivers to its client callback.
type Event int

const (
	// EventBind fires once, the moment the first announcement has been
	// sent: the address is now owned by this host.
	EventBind Event = iota

	// EventConflict fires when a conflicting use of the address was
	// detected; the ACD has already reset to StateInit by the time the
	// callback runs.
	EventConflict

	// EventStop fires when the client called Stop.
	EventStop
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventBind:
		return "BIND"
	case EventConflict:
		return "CONFLICT"
	case EventStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Callback is invoked synchronously, from the reactor's dispatch
// goroutine, whenever an ACD has an Event to report. The ACD holds an
// internal reference to itself across the call, so it is safe for a
// callback to Unref its own ACD; it must not, however, call back into the
// ACD from another goroutine.
type Callback func(a *ACD, event Event, userdata any)

// notify delivers event to a's callback, if one is set.
func (a *ACD) notify(event Event) {
	if a.callback == nil {
		return
	}

	a.Ref()
	defer a.Unref()

	a.callback(a, event, a.userdata)
}
