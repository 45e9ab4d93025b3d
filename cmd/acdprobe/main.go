// Command acdprobe runs a single IPv4 ACD claim against one network
// interface and logs BIND/CONFLICT/STOP as they happen, mirroring the way
// a DHCP client or a link-local address daemon would drive the library.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"

	"github.com/netprobe/ipv4acd"
)

var (
	ifaceFlag = flag.String("i", "eth0", "network interface to probe and claim the address on")
	ipFlag    = flag.String("ip", "", "candidate IPv4 address to probe, announce and defend")
)

func main() {
	flag.Parse()

	ifi, err := net.InterfaceByName(*ifaceFlag)
	if err != nil {
		log.Fatalf("acdprobe: %s", err)
	}

	ip := net.ParseIP(*ipFlag).To4()
	if ip == nil {
		log.Fatalf("acdprobe: invalid IPv4 address: %q", *ipFlag)
	}

	a := ipv4acd.New()
	if err := a.SetIfindex(ifi.Index); err != nil {
		log.Fatalf("acdprobe: %s", err)
	}
	if err := a.SetMAC(ifi.HardwareAddr); err != nil {
		log.Fatalf("acdprobe: %s", err)
	}
	if err := a.SetAddress(ip); err != nil {
		log.Fatalf("acdprobe: %s", err)
	}

	reactor := ipv4acd.NewReactor()
	defer reactor.Close()

	if err := a.AttachEvent(reactor, 0); err != nil {
		log.Fatalf("acdprobe: %s", err)
	}

	done := make(chan struct{})
	a.SetCallback(func(a *ipv4acd.ACD, event ipv4acd.Event, _ any) {
		log.Printf("acdprobe: %s is-at %s: %s", ip, ifi.HardwareAddr, event)
		if event != ipv4acd.EventBind {
			close(done)
		}
	}, nil)

	if err := a.Start(); err != nil {
		log.Fatalf("acdprobe: %s", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case <-sig:
		// Stop touches a's state, which is only safe from the reactor's
		// dispatch goroutine; posting it through the reactor avoids racing
		// onTimeout/onPacket running concurrently on that goroutine.
		reactor.Do(a.Stop)
		<-done
	case <-done:
	}
}
