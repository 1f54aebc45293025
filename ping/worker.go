package ping

import (
	"fmt"
	"net"
	"time"

	"github.com/arptour/arptour/frame"
	"github.com/arptour/arptour/internal/metrics"
	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/raw"
)

const (
	echoCount    = 4
	echoInterval = time.Second
	replyWait    = time.Second
	pingIPID     = 14508
)

// worker runs one ping probe at a time, pulling jobs from the pool's
// shared queue and writing echo requests to the pool's shared raw
// packet socket (spec §4.5). Its id tags every echo it sends so the
// pool's single reader goroutine can route a reply back to the worker
// that is waiting on it, instead of each worker re-reading the socket
// looking for its own reply (spec §9, "Concurrency rewrite"). This
// per-worker id stands in for the source's use of the process id as
// the ICMP identifier: a single process can now run several probes at
// once, so one pid no longer uniquely tags a probe (see DESIGN.md).
type worker struct {
	pool    *Pool
	id      uint16
	replies chan echoReply
}

func newWorker(p *Pool, id uint16) *worker {
	return &worker{
		pool:    p,
		id:      id,
		replies: make(chan echoReply, 1),
	}
}

// run services jobs until the pool closes.
func (w *worker) run() {
	for {
		select {
		case j := <-w.pool.jobs:
			w.probe(j.ip, j.mac)
		case <-w.pool.done:
			return
		}
	}
}

// probe sends echoCount requests to (ip, mac) at echoInterval spacing,
// logging and accounting for each reply that arrives in time (spec
// §4.5 steps 2-4).
func (w *worker) probe(ip net.IP, mac net.HardwareAddr) {
	var received int
	for seq := uint16(0); seq < echoCount; seq++ {
		if err := w.send(ip, mac, seq); err != nil {
			w.pool.log.Warn("ping: send echo", "ip", ip, "seq", seq, "error", err)
		} else {
			metrics.PingEchoesSent.Inc()
		}

		if reply, rtt, ok := w.awaitReply(seq); ok {
			w.pool.log.Info("ping reply",
				"bytes", reply.Bytes, "from", ip, "seq", seq, "ttl", reply.TTL, "rtt_ms", rtt)
			metrics.PingRTT.Observe(rtt)
			received++
		}

		if seq+1 < echoCount {
			time.Sleep(echoInterval)
		}
	}
	w.pool.log.Info("ping summary", "to", ip, "transmitted", echoCount, "received", received)
}

// send crafts and injects one Ethernet-layer ICMP Echo Request frame
// (spec §4.5 step 2): Ethernet II + IPv4 (ttl=255, hand-computed
// checksum) + ICMP Echo (id = w.id, seq, data = current timestamp).
func (w *worker) send(ip net.IP, mac net.HardwareAddr, seq uint16) error {
	icmp := frame.ICMPEcho{
		Type: frame.ICMPTypeEchoRequest,
		ID:   w.id,
		Seq:  seq,
		Data: []byte(fmt.Sprintf("%d", time.Now().UnixNano())),
	}
	icmpBytes, err := icmp.MarshalBinary()
	if err != nil {
		return fmt.Errorf("ping: marshal icmp: %w", err)
	}

	ip4 := frame.IPv4Header{
		TTL:      255,
		ID:       pingIPID,
		Protocol: icmpProtocol,
		Src:      w.pool.ifd.IPv4,
		Dst:      ip,
		TotalLen: uint16(frame.IPv4HeaderLen + len(icmpBytes)),
	}
	ipBytes, err := ip4.MarshalBinary()
	if err != nil {
		return fmt.Errorf("ping: marshal ip: %w", err)
	}

	f := &ethernet.Frame{
		Destination: mac,
		Source:      w.pool.ifd.MAC,
		EtherType:   ipv4EtherType,
		Payload:     append(ipBytes, icmpBytes...),
	}
	b, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("ping: marshal frame: %w", err)
	}

	_, err = w.pool.conn.WriteTo(b, &raw.Addr{HardwareAddr: mac})
	return err
}

// awaitReply waits up to replyWait for a reply matching seq, discarding
// anything else the pool's reader hands it. The spec's own account of
// this step is an unbounded recursive re-read on mismatch (§9, a noted
// source hazard); this is the bounded, iterative replacement it calls
// for.
func (w *worker) awaitReply(seq uint16) (reply echoReply, rttMS float64, ok bool) {
	deadline := time.NewTimer(replyWait)
	defer deadline.Stop()
	start := time.Now()

	for {
		select {
		case got := <-w.replies:
			if got.Seq != seq {
				continue
			}
			return got, time.Since(start).Seconds() * 1000, true
		case <-deadline.C:
			return echoReply{}, 0, false
		}
	}
}
