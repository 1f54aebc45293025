package tour

import "net"

// DefaultGroup and DefaultPort are the fixed multicast rendezvous point
// used by the termination handshake (spec §6, Glossary "Magic values").
var DefaultGroup = net.IPv4(238, 92, 83, 18).To4()

const DefaultPort = 7518

// State is the tour forwarder's per-node bookkeeping (spec §3 "Tour
// state"). It is owned exclusively by the forwarder's event loop
// goroutine. The "set of already-pinged predecessor pairs" the spec
// describes is not kept here: the preceding-node dedup rule (spec §4.4)
// is decidable from the packet's own sequence array alone, so
// Forwarder.checkPreceding recomputes it per arrival instead of
// maintaining redundant per-node memory.
type State struct {
	OwnIP       net.IP
	OwnHostname string
	Sequence    []SequenceEntry // only populated on the originating node
	Group       net.IP
	Port        uint16
	Active      bool
}

// NewState returns a State ready to participate in a tour as a passive
// node, awaiting arrival.
func NewState(ownIP net.IP, ownHostname string) *State {
	return &State{
		OwnIP:       ownIP,
		OwnHostname: ownHostname,
		Group:       DefaultGroup,
		Port:        DefaultPort,
	}
}
