package ipv4acd

import (
	"bytes"
	"net"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/raw"
)

// openRawARPSocket opens a raw link-layer socket bound to ifindex that
// carries ARP traffic. There is no kernel packet filter attached here; the
// sender/target filter a BPF program would otherwise apply is instead
// applied in software by matchesFilter against every frame this socket
// yields, before it reaches the classifier or the state machine.
func openRawARPSocket(ifindex int) (net.PacketConn, error) {
	ifi, err := net.InterfaceByIndex(ifindex)
	if err != nil {
		return nil, errors.Annotate(err, "looking up interface %d: %w", ifindex)
	}

	conn, err := raw.ListenPacket(ifi, syscall.ETH_P_ARP, nil)
	if err != nil {
		return nil, errors.Annotate(err, "opening raw arp socket on %s: %w", ifi.Name)
	}

	return conn, nil
}

// decodeARPFrame unwraps an ethernet frame and parses its payload as an
// ARP packet. It returns errNotARP for non-ARP EtherTypes, and whatever
// arpPacket.UnmarshalBinary returns (io.ErrUnexpectedEOF) for short
// frames, both of which callers should drop silently.
func decodeARPFrame(buf []byte) (*arpPacket, error) {
	f := new(ethernet.Frame)
	if err := f.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	if f.EtherType != ethernet.EtherTypeARP {
		return nil, errNotARP
	}

	p := new(arpPacket)
	if err := p.UnmarshalBinary(f.Payload); err != nil {
		return nil, err
	}

	return p, nil
}

// matchesFilter reproduces, in software, what a kernel packet filter would
// otherwise do: forward only frames whose sender or target protocol
// address equals addr, and whose sender hardware address is not our own
// mac (so an ACD never reacts to frames it sent itself).
func matchesFilter(p *arpPacket, addr net.IP, mac net.HardwareAddr) bool {
	if bytes.Equal(p.SenderHardwareAddr, mac) {
		return false
	}

	return p.SenderIP.Equal(addr) || p.TargetIP.Equal(addr)
}

// sendARP marshals pkt, wraps it in an ethernet frame addressed to the
// broadcast hardware address, and writes it to conn.
func sendARP(conn net.PacketConn, mac net.HardwareAddr, pkt *arpPacket) (int, error) {
	pb, err := pkt.MarshalBinary()
	if err != nil {
		return 0, err
	}

	f := &ethernet.Frame{
		Destination: ethernet.Broadcast,
		Source:      mac,
		EtherType:   ethernet.EtherTypeARP,
		Payload:     pb,
	}

	fb, err := f.MarshalBinary()
	if err != nil {
		return 0, err
	}

	return conn.WriteTo(fb, &raw.Addr{HardwareAddr: ethernet.Broadcast})
}

// sendProbe sends an ARP request with SPA=0, TPA=addr, SHA=mac,
// advertising that nobody yet holds addr.
func sendProbe(conn net.PacketConn, mac net.HardwareAddr, addr net.IP) (int, error) {
	return sendARP(conn, mac, newProbe(mac, addr))
}

// sendAnnouncement sends a gratuitous ARP with SPA=TPA=addr, claiming or
// defending addr.
func sendAnnouncement(conn net.PacketConn, mac net.HardwareAddr, addr net.IP) (int, error) {
	return sendARP(conn, mac, newAnnouncement(mac, addr))
}
