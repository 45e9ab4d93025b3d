package ipv4acd

import "github.com/AdguardTeam/golibs/errors"

// Sentinel configuration and lifecycle errors returned by ACD's setters and
// Start/Stop. Callers may compare against these with errors.Is.
const (
	// ErrBusy is returned by a configuration setter when the ACD is not in
	// StateInit, or by AttachEvent when a reactor is already attached.
	ErrBusy errors.Error = "ipv4acd: busy"

	// ErrInvalidIfindex is returned by SetIfindex for a non-positive index.
	ErrInvalidIfindex errors.Error = "ipv4acd: invalid ifindex"

	// ErrInvalidMAC is returned by SetMAC for a nil or all-zero address.
	ErrInvalidMAC errors.Error = "ipv4acd: invalid mac address"

	// ErrInvalidAddress is returned by SetAddress for a nil or non-IPv4
	// address.
	ErrInvalidAddress errors.Error = "ipv4acd: invalid ipv4 address"

	// ErrNotConfigured is returned by Start when ifindex, MAC, address or
	// reactor have not all been set.
	ErrNotConfigured errors.Error = "ipv4acd: not fully configured"

	// errNotARP is returned by decodeARPFrame for a non-ARP EtherType; it
	// is not exported since callers are expected to drop it silently
	// rather than inspect it.
	errNotARP errors.Error = "ipv4acd: not an ARP frame"
)
