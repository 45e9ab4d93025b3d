// Package ipv4acd implements IPv4 Address Conflict Detection as described
// in RFC 5227. Given a network interface, a hardware address and a
// candidate IPv4 address, an ACD probes the local link over ARP to
// determine whether another host already holds the address, announces the
// claim if the probe goes unchallenged, and defends the claim against
// later conflicts for as long as it runs.
//
// An ACD is driven entirely by a Reactor (see the Reactor type): timer
// expirations and incoming ARP frames are dispatched from the reactor's
// single event-loop goroutine, and the ACD's own state is not safe for
// concurrent use from any other goroutine. Client notifications (BIND,
// CONFLICT, STOP) are delivered synchronously from that same goroutine.
package ipv4acd
