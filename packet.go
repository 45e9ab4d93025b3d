package ipv4acd

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/mdlayher/ethernet"
)

// arpOperation mirrors the Operation field of an ARP packet as described
// in RFC 826. ACD only ever sends requests; received frames are classified
// whatever their operation.
type arpOperation uint16

const arpOperationRequest arpOperation = 1

// arpPacket is a raw ARP packet (RFC 826), trimmed to what ACD needs to
// build probes/announcements and to classify received frames. Unlike a
// general-purpose ARP codec, SenderHardwareAddr/TargetHardwareAddr are
// always 6 bytes and SenderIP/TargetIP are always 4 bytes, since ACD only
// speaks ARP over Ethernet/IPv4.
type arpPacket struct {
	Operation          arpOperation
	SenderHardwareAddr net.HardwareAddr
	SenderIP           net.IP
	TargetHardwareAddr net.HardwareAddr
	TargetIP           net.IP
}

// arpFrameLen is the fixed wire length of an Ethernet-ARP/IPv4 packet: 2
// (hardware type) + 2 (protocol type) + 1 (hw addr len) + 1 (proto addr
// len) + 2 (operation) + 6 + 4 (sender) + 6 + 4 (target).
const arpFrameLen = 2 + 2 + 1 + 1 + 2 + 6 + 4 + 6 + 4

// newProbe builds an ARP probe for addr: SPA is unspecified (0.0.0.0), TPA
// is the candidate address, and the target hardware address is the
// all-zero unknown-address placeholder, per RFC 5227 §2.1.1.
func newProbe(mac net.HardwareAddr, addr net.IP) *arpPacket {
	return &arpPacket{
		Operation:          arpOperationRequest,
		SenderHardwareAddr: mac,
		SenderIP:           net.IPv4zero.To4(),
		TargetHardwareAddr: make(net.HardwareAddr, 6),
		TargetIP:           addr.To4(),
	}
}

// newAnnouncement builds a gratuitous ARP announcing addr: both SPA and
// TPA are the claimed address.
func newAnnouncement(mac net.HardwareAddr, addr net.IP) *arpPacket {
	return &arpPacket{
		Operation:          arpOperationRequest,
		SenderHardwareAddr: mac,
		SenderIP:           addr.To4(),
		TargetHardwareAddr: ethernet.Broadcast,
		TargetIP:           addr.To4(),
	}
}

// MarshalBinary encodes p in RFC 826 wire format for Ethernet/IPv4:
// 2 bytes hardware type, 2 bytes protocol type, 1 byte hw addr length,
// 1 byte protocol addr length, 2 bytes operation, then SHA/SPA/THA/TPA.
func (p *arpPacket) MarshalBinary() ([]byte, error) {
	b := make([]byte, arpFrameLen)

	binary.BigEndian.PutUint16(b[0:2], 1) // hardware type: Ethernet
	binary.BigEndian.PutUint16(b[2:4], uint16(ethernet.EtherTypeIPv4))
	b[4] = 6 // hardware address length
	b[5] = 4 // protocol address length
	binary.BigEndian.PutUint16(b[6:8], uint16(p.Operation))

	n := 8
	copy(b[n:n+6], p.SenderHardwareAddr)
	n += 6
	copy(b[n:n+4], p.SenderIP.To4())
	n += 4
	copy(b[n:n+6], p.TargetHardwareAddr)
	n += 6
	copy(b[n:n+4], p.TargetIP.To4())

	return b, nil
}

// UnmarshalBinary decodes an ARP packet from b. Frames shorter than
// arpFrameLen are rejected with io.ErrUnexpectedEOF; callers should drop
// these silently rather than treat them as malformed conflicts.
func (p *arpPacket) UnmarshalBinary(b []byte) error {
	if len(b) < arpFrameLen {
		return io.ErrUnexpectedEOF
	}

	p.Operation = arpOperation(binary.BigEndian.Uint16(b[6:8]))

	n := 8
	sha := make(net.HardwareAddr, 6)
	copy(sha, b[n:n+6])
	p.SenderHardwareAddr = sha
	n += 6

	spa := make(net.IP, 4)
	copy(spa, b[n:n+4])
	p.SenderIP = spa
	n += 4

	tha := make(net.HardwareAddr, 6)
	copy(tha, b[n:n+6])
	p.TargetHardwareAddr = tha
	n += 6

	tpa := make(net.IP, 4)
	copy(tpa, b[n:n+4])
	p.TargetIP = tpa

	return nil
}

// isConflict reports whether p conflicts with addr: its sender protocol
// address equals addr. A target-only match is never, on its own, a
// conflict here; pre-bound states treat any frame the socket filter
// delivers as a conflict without consulting isConflict at all (see
// state.go).
func isConflict(p *arpPacket, addr net.IP) bool {
	return p.SenderIP.Equal(addr)
}
