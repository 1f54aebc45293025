// Package ping injects ICMP Echo frames directly at the link layer,
// bypassing the kernel's own IP stack, to probe the tour's preceding
// hops (spec §4.5). Grounded on mdlayher-aoe's raw-socket injection
// idiom (github.com/mdlayher/raw) and on
// _examples/therealutkarshpriyadarshi-network/pkg/icmp/icmp.go's
// checksum/type-code layout for the ICMP header itself.
package ping

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/arptour/arptour/frame"
	"github.com/arptour/arptour/iface"
	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/raw"
)

const (
	ipv4EtherType = 0x0800
	icmpProtocol  = 1
)

// Pool is a bounded set of ping workers sharing one raw packet socket.
// A single reader goroutine demultiplexes ICMP echo replies by ID to the
// owning worker's channel instead of each worker re-reading the socket
// hunting for its own reply (spec §9, "Concurrency rewrite").
type Pool struct {
	ifd  *iface.Descriptor
	conn net.PacketConn
	log  *slog.Logger

	jobs chan job
	done chan struct{}

	mu   sync.Mutex
	byID map[uint16]*worker
}

type job struct {
	ip  net.IP
	mac net.HardwareAddr
}

// NewPool opens the shared raw packet socket and starts size workers.
func NewPool(ifd *iface.Descriptor, size int, log *slog.Logger) (*Pool, error) {
	ifi := &net.Interface{Index: ifd.Index, Name: ifd.Name, HardwareAddr: ifd.MAC}
	conn, err := raw.ListenPacket(ifi, ipv4EtherType)
	if err != nil {
		return nil, fmt.Errorf("ping: open raw socket: %w", err)
	}

	p := &Pool{
		ifd:  ifd,
		conn: conn,
		log:  log,
		jobs: make(chan job, size),
		done: make(chan struct{}),
		byID: make(map[uint16]*worker, size),
	}

	for i := 0; i < size; i++ {
		w := newWorker(p, uint16(i+1))
		p.byID[w.id] = w
		go w.run()
	}
	go p.readLoop()

	return p, nil
}

// Ping enqueues a 4-echo probe against (ip, mac). It blocks only long
// enough to hand the job to a free worker slot; the probe itself runs
// asynchronously and logs its own summary on completion.
func (p *Pool) Ping(ip net.IP, mac net.HardwareAddr) error {
	select {
	case p.jobs <- job{ip: ip, mac: mac}:
		return nil
	case <-p.done:
		return fmt.Errorf("ping: pool closed")
	}
}

// Close stops all workers and releases the raw socket.
func (p *Pool) Close() error {
	close(p.done)
	return p.conn.Close()
}

func (p *Pool) readLoop() {
	buf := make([]byte, 1500)
	for {
		n, _, err := p.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-p.done:
				return
			default:
				p.log.Warn("ping: read failed", "error", err)
				continue
			}
		}

		echo, ok := decodeEchoReply(buf[:n])
		if !ok {
			continue
		}

		p.mu.Lock()
		w, ok := p.byID[echo.ID]
		p.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case w.replies <- echo:
		default:
		}
	}
}

// echoReply is a decoded ICMP echo reply together with the IP-layer and
// frame-layer facts a ping worker needs to build its RTT record (spec §3
// "Ping RTT record": seq, ttl seen, byte count, rtt).
type echoReply struct {
	frame.ICMPEcho
	TTL   uint8
	Bytes int
}

func decodeEchoReply(b []byte) (echoReply, bool) {
	var f ethernet.Frame
	if err := (&f).UnmarshalBinary(b); err != nil {
		return echoReply{}, false
	}
	if f.EtherType != ipv4EtherType {
		return echoReply{}, false
	}

	var ip frame.IPv4Header
	if err := ip.UnmarshalBinary(f.Payload); err != nil {
		return echoReply{}, false
	}
	if ip.Protocol != icmpProtocol {
		return echoReply{}, false
	}

	var icmp frame.ICMPEcho
	icmpBytes := f.Payload[frame.IPv4HeaderLen:]
	// Drop any Ethernet padding past the datagram's IPv4 total length.
	if tl := int(ip.TotalLen); tl >= frame.IPv4HeaderLen && tl <= len(f.Payload) {
		icmpBytes = f.Payload[frame.IPv4HeaderLen:tl]
	}
	if err := icmp.UnmarshalBinary(icmpBytes); err != nil {
		return echoReply{}, false
	}
	if icmp.Type != frame.ICMPTypeEchoReply {
		return echoReply{}, false
	}
	return echoReply{ICMPEcho: icmp, TTL: ip.TTL, Bytes: len(icmpBytes)}, true
}
