package tour

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/arptour/arptour/areq"
	"github.com/arptour/arptour/frame"
	"github.com/arptour/arptour/iface"
	"github.com/arptour/arptour/internal/metrics"
	"github.com/arptour/arptour/mcast"
	"github.com/arptour/arptour/ping"
)

// terminationGrace is how long a terminal node waits for the preceding
// hop's ping replies to arrive before starting the multicast handshake
// (spec §4.4).
const terminationGrace = 5 * time.Second

// Forwarder is the tour event loop: one raw socket, one owned State, and
// the two downstream collaborators (areq for MAC resolution, ping for the
// actual probe) it drives on arrival. Grounded on mdlayher-aoe/server.go's
// single-owner-goroutine event loop, adapted from Ethernet frames to raw
// IPv4 datagrams.
type Forwarder struct {
	iface *iface.Descriptor
	ns    string
	log   *slog.Logger

	sock  *rawSocket
	pool  *ping.Pool
	state *State

	hsMu sync.Mutex
	hs   *mcast.Handshake
}

// NewForwarder opens the raw tour socket and ping pool for ifd. hostname
// is this node's own name, as it appears in the tour hostname sequence
// and in the termination handshake's identify messages (spec §3, §4.6).
func NewForwarder(ifd *iface.Descriptor, hostname, ns string, log *slog.Logger) (*Forwarder, error) {
	sock, err := newRawSocket()
	if err != nil {
		return nil, err
	}

	pool, err := ping.NewPool(ifd, 4, log)
	if err != nil {
		sock.Close()
		return nil, err
	}

	return &Forwarder{
		iface: ifd,
		ns:    ns,
		log:   log,
		sock:  sock,
		pool:  pool,
		state: NewState(ifd.IPv4, hostname),
	}, nil
}

// Close releases the raw socket, ping pool, and multicast membership
// (if one was ever joined).
func (f *Forwarder) Close() error {
	f.hsMu.Lock()
	hs := f.hs
	f.hsMu.Unlock()
	if hs != nil {
		hs.Close()
	}
	f.pool.Close()
	return f.sock.Close()
}

// StartTour builds the visit sequence from self plus hosts, joins the
// termination multicast group, and emits the first hop (spec §4.4 "Start
// path (source only)").
func (f *Forwarder) StartTour(hosts []string) error {
	names, err := BuildSequence(f.state.OwnHostname, hosts)
	if err != nil {
		return err
	}
	entries, err := Resolve(names)
	if err != nil {
		return fmt.Errorf("tour: resolve sequence: %w", err)
	}

	seq := make([]net.IP, len(entries))
	for i, e := range entries {
		seq[i] = e.IP
	}
	f.state.Sequence = entries

	pkt := &Packet{
		IP: frame.IPv4Header{
			TTL: 1,
			Src: f.iface.IPv4,
			Dst: seq[1],
		},
		Header: Header{
			Group:     f.state.Group,
			Port:      f.state.Port,
			SeqLength: uint8(len(seq)),
			Index:     1,
		},
		Sequence: seq,
	}

	f.state.Active = true
	go f.startListening(f.state.Group, f.state.Port)

	b, err := pkt.MarshalBinary()
	if err != nil {
		return err
	}
	f.log.Info("tour started", "sequence", names, "next_hop", seq[1])
	return f.sock.Send(seq[1], b)
}

// ensureHandshake joins the tour's termination group the first time any
// caller needs it and reuses that same membership afterward, so a node
// that joined passively (startListening) and later turns out to be the
// terminal node (runTerminal) never binds the multicast port twice.
func (f *Forwarder) ensureHandshake(group net.IP, port uint16) (hs *mcast.Handshake, firstJoin bool) {
	f.hsMu.Lock()
	defer f.hsMu.Unlock()
	if f.hs != nil {
		return f.hs, false
	}
	hs, err := mcast.Join(group, port, f.log)
	if err != nil {
		f.log.Warn("tour: join multicast group", "error", err)
		return nil, false
	}
	f.hs = hs
	return hs, true
}

// startListening runs this node's non-originating side of the
// termination handshake: join, answer the first "identify" seen, and
// exit once the group has been silent for SilenceTimeout (spec §4.6).
// Every node that ever sees the tour needs this running, including the
// source (active from the moment it sends the first hop); the terminal
// node instead originates via runTerminal, joining the same way if it
// has not already.
func (f *Forwarder) startListening(group net.IP, port uint16) {
	hs, _ := f.ensureHandshake(group, port)
	if hs == nil {
		return
	}
	if err := hs.Run(context.Background(), f.state.OwnHostname, false); err != nil {
		f.log.Warn("tour: multicast handshake", "error", err)
	}
}

// Run reads tour datagrams off the raw socket until ctx is canceled.
func (f *Forwarder) Run(ctx context.Context) error {
	datagrams := make(chan []byte, 16)
	go f.readLoop(ctx, datagrams)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b := <-datagrams:
			f.handleDatagram(b)
		}
	}
}

func (f *Forwarder) readLoop(ctx context.Context, out chan<- []byte) {
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := f.sock.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("tour: recv failed", "error", err)
			continue
		}
		cp := append([]byte(nil), buf[:n]...)
		select {
		case out <- cp:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Forwarder) handleDatagram(b []byte) {
	var pkt Packet
	if err := pkt.UnmarshalBinary(b); err != nil {
		return
	}
	// Unrelated traffic sharing this protocol number is dropped silently
	// (spec §7), not logged as an error.
	if pkt.IP.ID != ID {
		return
	}

	firstArrival := !f.state.Active
	f.state.Active = true

	f.checkPreceding(pkt)

	next := int(pkt.Header.Index) + 1
	if next < int(pkt.Header.SeqLength) {
		metrics.TourHopsForwarded.Inc()
		// The terminal arrival below joins (if needed) and runs the
		// handshake itself; only a non-terminal first arrival needs a
		// separate listener started here.
		if firstArrival {
			go f.startListening(pkt.Header.Group, pkt.Header.Port)
		}
		f.forward(pkt, uint8(next))
		return
	}
	go f.runTerminal(pkt)
}

// checkPreceding implements the preceding-node detection rule (spec
// §4.4) and dispatches a ping for the preceding hop when it finds one
// newly observed.
func (f *Forwarder) checkPreceding(pkt Packet) {
	sender, ok := precedingEdge(pkt)
	if !ok {
		return
	}
	go f.dispatchPing(sender)
}

// precedingEdge evaluates the preceding-node detection rule (spec §4.4,
// Glossary "Preceding node"), grounded on original_source/tour.c's
// IsVisitedPrecedingNode, which runs this check after the received
// index has already been incremented (tour.c:148). Translated back to
// the as-received index idx (this node's own position in the
// sequence): let L = idx-1 be the hop that just sent this packet, and
// compare the edge (sender, self) = (payload[L], payload[idx]) against
// every earlier consecutive pair (payload[i-1], payload[i]) for
// 1 <= i < idx. If that edge already occurred, the sender has already
// been pinged for arriving here by this same route and is skipped;
// otherwise it reports sender and ok=true.
//
// An earlier version of this function compared (sender, predecessor of
// sender) — (payload[L], payload[idx-2]) — against the same history
// instead of (sender, self). That only happened to reproduce spec §8's
// S6 example (v1 v2 v3 v2 v3) because payload[idx-2] and payload[idx]
// coincide there (v3 repeats with period 2); it misses a real dedup
// miss on a non-periodic sequence such as v1 v2 v3 v4 v3 v2, where at
// v2's second arrival the edge v3->v2 is genuinely novel and must ping,
// but the old comparison matched it against the unrelated v3->v4 edge
// and wrongly suppressed it. TestPrecedingEdgeNonPeriodic pins this
// down.
//
// idx < 2 (no hop precedes the sender) never pings, matching spec §8
// S5 where the tour's very first hop arrival fires no ping at all.
//
// The sequence travels with the packet, so this is a pure function of
// pkt alone — no per-node memory of past arrivals is needed or kept.
func precedingEdge(pkt Packet) (sender net.IP, ok bool) {
	idx := int(pkt.Header.Index)
	if idx < 2 || idx >= len(pkt.Sequence) {
		return nil, false
	}
	L := idx - 1

	s, self := pkt.Sequence[L], pkt.Sequence[idx]
	for i := 1; i < idx; i++ {
		if pkt.Sequence[i-1].Equal(s) && pkt.Sequence[i].Equal(self) {
			return nil, false
		}
	}
	return s, true
}

func (f *Forwarder) dispatchPing(target net.IP) {
	rec, err := areq.Resolve(f.ns, target)
	if err != nil {
		f.log.Warn("tour: resolve preceding hop", "ip", target, "error", err)
		return
	}
	metrics.TourPingsLaunched.Inc()
	if err := f.pool.Ping(target, rec.MAC()); err != nil {
		f.log.Warn("tour: ping preceding hop", "ip", target, "error", err)
	}
}

func (f *Forwarder) forward(pkt Packet, newIndex uint8) {
	next := pkt.Sequence[newIndex]
	f.log.Info("tour hop", "sequence", pkt.Sequence, "position", newIndex, "next_hop", next)
	out := Packet{
		IP: frame.IPv4Header{
			TTL: 1,
			Src: f.iface.IPv4,
			Dst: next,
		},
		Header: Header{
			Group:     pkt.Header.Group,
			Port:      pkt.Header.Port,
			SeqLength: pkt.Header.SeqLength,
			Index:     newIndex,
		},
		Sequence: pkt.Sequence,
	}

	b, err := out.MarshalBinary()
	if err != nil {
		f.log.Warn("tour: encode forward", "error", err)
		return
	}
	if err := f.sock.Send(next, b); err != nil {
		f.log.Warn("tour: send forward", "next_hop", next, "error", err)
	}
}

// runTerminal waits for preceding-hop ping replies to arrive, then
// announces the end of the tour and runs the termination handshake
// (spec §4.4, §4.6). If a listener joined this group already
// (startListening, triggered by an earlier non-terminal arrival at this
// same node), runTerminal reuses that membership and leaves the
// existing Run loop to pick up its own identify message; otherwise it
// joins now and drives the handshake itself.
func (f *Forwarder) runTerminal(pkt Packet) {
	time.Sleep(terminationGrace)

	hs, firstJoin := f.ensureHandshake(pkt.Header.Group, pkt.Header.Port)
	if hs == nil {
		return
	}
	if err := hs.SendIdentify(f.state.OwnHostname); err != nil {
		f.log.Warn("tour: send identify", "error", err)
		return
	}
	if firstJoin {
		if err := hs.Run(context.Background(), f.state.OwnHostname, true); err != nil {
			f.log.Warn("tour: multicast handshake", "error", err)
		}
	}
}
