// Package arp implements the custom, from-scratch ARP engine: it
// exchanges custom-identified frames over a raw packet socket, maintains
// an IPv4-to-MAC cache, and answers local AREQ clients over a Unix domain
// stream listener. Grounded on _examples/mdlayher-aoe/server.go's
// Server/Serve/conn.serve shape, translated from its one-goroutine-per-AoE-
// request model into a single cache-owning event loop fed by channels, per
// the concurrency rewrite called for in Design Notes §9.
package arp

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/arptour/arptour/frame"
	"github.com/arptour/arptour/iface"
	"github.com/arptour/arptour/internal/metrics"
	"github.com/mdlayher/raw"
)

// ARID is the fixed identification field stamped on every frame this
// engine emits, and the only value it accepts on receive (spec §4.1,
// §6).
const ARID = 14508

// SocketPath returns the well-known Unix listener path for namespace ns
// (spec §6).
func SocketPath(ns string) string {
	return "/tmp/" + ns + "-arpService"
}

// Engine is the ARP request/reply protocol engine described in spec §4.2.
// It owns the raw packet socket, the AREQ listener, and the cache. The
// cache is touched only from the goroutine running Run; the socket and
// listener are read by helper goroutines that feed Run over channels.
type Engine struct {
	iface *iface.Descriptor
	log   *slog.Logger

	conn     net.PacketConn
	listener net.Listener
	cache    *Cache
}

// New creates an Engine bound to ifd, listening for AREQ clients at
// SocketPath(ns). The raw packet socket and the Unix listener are opened
// immediately; both failures are the startup-fatal conditions of spec §7.
func New(ifd *iface.Descriptor, ns string, log *slog.Logger) (*Engine, error) {
	ifi := &net.Interface{Index: ifd.Index, Name: ifd.Name, HardwareAddr: ifd.MAC}
	conn, err := raw.ListenPacket(ifi, uint16(EtherType))
	if err != nil {
		return nil, err
	}

	path := SocketPath(ns)
	ln, err := net.Listen("unix", path)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Engine{
		iface:    ifd,
		log:      log,
		conn:     conn,
		listener: ln,
		cache:    NewCache(),
	}, nil
}

// Close releases the engine's sockets.
func (e *Engine) Close() error {
	lerr := e.listener.Close()
	cerr := e.conn.Close()
	if lerr != nil {
		return lerr
	}
	return cerr
}

// acreq is the result of accepting and reading an AREQ client request.
type acreq struct {
	conn net.Conn
	ip   net.IP
	err  error
}

// Run drives the engine's event loop until ctx is canceled and then
// returns ctx.Err(). A read error on the raw socket or an accept error on
// the listener stops frame reading or client accepting respectively; Run
// itself keeps running and does not return that error. It is the single
// owner of e.cache for the
// lifetime of the call (Design Notes §9: no hidden singletons, one
// owned context per operation).
func (e *Engine) Run(ctx context.Context) error {
	frames := make(chan message, 16)
	acreqs := make(chan acreq, 16)
	disconnects := make(chan disconnect, 16)
	done := make(chan struct{})
	defer close(done)

	go e.readFrames(ctx, frames)
	go e.acceptLoop(ctx, acreqs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-frames:
			e.handleFrame(msg, disconnects, done)
		case r := <-acreqs:
			e.handleAcreq(r, disconnects, done)
		case d := <-disconnects:
			e.handleDisconnect(d)
		}
	}
}

// readFrames reads raw frames and forwards the ones that decode as
// custom ARP frames. It exits when the raw socket closes.
func (e *Engine) readFrames(ctx context.Context, frames chan<- message) {
	buf := make([]byte, 1500)
	for {
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		msg, ok := decodeFrame(buf[:n])
		if !ok {
			metrics.ARPFramesDropped.Inc()
			continue
		}
		select {
		case frames <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// acceptLoop accepts AREQ client connections and reads the 4-byte
// target IP from each on its own goroutine, per Design Notes §9's call
// to replicate the reference's unchecked read with explicit short-read
// handling instead.
func (e *Engine) acceptLoop(ctx context.Context, acreqs chan<- acreq) {
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			buf := make([]byte, 4)
			_, err := io.ReadFull(conn, buf)
			var ip net.IP
			if err == nil {
				ip = net.IP(append([]byte(nil), buf...))
			}
			select {
			case acreqs <- acreq{conn: conn, ip: ip, err: err}:
			case <-ctx.Done():
				conn.Close()
			}
		}()
	}
}

func opLabel(op uint16) string {
	switch op {
	case frame.OpRequest:
		return "request"
	case frame.OpReply:
		return "reply"
	default:
		return "unknown"
	}
}

func (e *Engine) handleFrame(msg message, disconnects chan<- disconnect, done <-chan struct{}) {
	metrics.ARPFramesReceived.WithLabelValues(opLabel(msg.Header.Op)).Inc()

	switch msg.Header.Op {
	case frame.OpRequest:
		e.handleRequest(msg)
	case frame.OpReply:
		e.handleReply(msg)
	}
}

// handleRequest implements spec §4.2 step 1, REQ branch: learn the
// sender only when the frame is relevant to this node (target local, or
// an entry for the sender already exists), and answer only when the
// target is this node's own address.
func (e *Engine) handleRequest(msg message) {
	targetLocal := msg.Payload.TargetIP.Equal(e.iface.IPv4)
	_, known := e.cache.Get(msg.Payload.SenderIP)

	if targetLocal || known {
		entry, ok := e.cache.Get(msg.Payload.SenderIP)
		if !ok {
			entry = &Entry{IP: msg.Payload.SenderIP}
		}
		entry.MAC = msg.Payload.SenderMAC
		entry.IfIndex = e.iface.Index
		entry.HWType = msg.Header.Hardware
		e.cache.Put(entry)
		metrics.ARPCacheSize.Set(float64(e.cache.Len()))
		e.log.Debug("arp cache insert", "ip", entry.IP, "mac", entry.MAC)
	}

	if targetLocal {
		e.sendReply(msg)
	}
}

func (e *Engine) sendReply(req message) {
	p := frame.ARPPayload{
		SenderMAC: e.iface.MAC,
		SenderIP:  e.iface.IPv4,
		TargetMAC: req.Payload.SenderMAC,
		TargetIP:  req.Payload.SenderIP,
	}
	b, err := encodeFrame(frame.OpReply, e.iface.MAC, req.Src, p)
	if err != nil {
		e.log.Error("encode arp reply", "err", err)
		return
	}
	if _, err := e.conn.WriteTo(b, &raw.Addr{HardwareAddr: req.Src}); err != nil {
		e.log.Warn("send arp reply", "err", err)
	}
}

// handleReply implements spec §4.2 step 1, REP branch: only processed
// when addressed to this node and an entry (complete or pending) already
// exists for the replying sender.
func (e *Engine) handleReply(msg message) {
	if !msg.Payload.TargetIP.Equal(e.iface.IPv4) {
		return
	}
	entry, ok := e.cache.Get(msg.Payload.SenderIP)
	if !ok {
		return
	}

	entry.MAC = msg.Payload.SenderMAC
	entry.IfIndex = e.iface.Index
	entry.HWType = msg.Header.Hardware

	waiters := entry.waiters
	entry.waiters = nil
	e.cache.Put(entry)
	metrics.ARPCacheSize.Set(float64(e.cache.Len()))
	e.log.Debug("arp cache complete", "ip", entry.IP, "mac", entry.MAC, "waiters", len(waiters))

	if len(waiters) == 0 {
		return
	}
	rec := frame.NewHWAddrRecord(entry.IfIndex, entry.HWType, entry.MAC)
	b, err := rec.MarshalBinary()
	if err != nil {
		e.log.Error("marshal hwaddr record", "err", err)
		return
	}
	for _, w := range waiters {
		if err := w.resolve(b); err != nil {
			e.log.Debug("areq reply write failed", "err", err)
		}
	}
}

// handleAcreq implements spec §4.2 step 2.
func (e *Engine) handleAcreq(r acreq, disconnects chan<- disconnect, done <-chan struct{}) {
	if r.err != nil {
		if r.conn != nil {
			r.conn.Close()
		}
		metrics.AREQRequests.WithLabelValues("short_read").Inc()
		return
	}

	entry, ok := e.cache.Get(r.ip)
	if ok && entry.Complete() {
		rec := frame.NewHWAddrRecord(entry.IfIndex, entry.HWType, entry.MAC)
		b, err := rec.MarshalBinary()
		if err == nil {
			r.conn.Write(b)
		}
		r.conn.Close()
		metrics.AREQRequests.WithLabelValues("cache_hit").Inc()
		return
	}

	pc := &pendingClient{conn: r.conn}
	var key [4]byte
	copy(key[:], r.ip.To4())

	if ok {
		// Entry already incomplete: queue this caller behind the
		// outstanding REQUEST instead of broadcasting a second one
		// (see the Entry doc comment in cache.go).
		entry.waiters = append(entry.waiters, pc)
		e.cache.Put(entry)
		metrics.AREQRequests.WithLabelValues("joined_pending").Inc()
	} else {
		entry = &Entry{IP: r.ip, waiters: []*pendingClient{pc}}
		e.cache.Put(entry)
		e.broadcastRequest(r.ip)
		metrics.ARPCacheSize.Set(float64(e.cache.Len()))
		metrics.AREQRequests.WithLabelValues("cache_miss").Inc()
	}

	go pc.watch(key, disconnects, done)
}

func (e *Engine) broadcastRequest(target net.IP) {
	p := frame.ARPPayload{
		SenderMAC: e.iface.MAC,
		SenderIP:  e.iface.IPv4,
		TargetMAC: make(net.HardwareAddr, 6),
		TargetIP:  target,
	}
	b, err := encodeFrame(frame.OpRequest, e.iface.MAC, broadcastHW, p)
	if err != nil {
		e.log.Error("encode arp request", "err", err)
		return
	}
	if _, err := e.conn.WriteTo(b, &raw.Addr{HardwareAddr: broadcastHW}); err != nil {
		e.log.Warn("send arp request", "err", err)
	}
}

// handleDisconnect implements spec §4.2 step 3 / §7: a pending client
// closing its connection before resolution removes exactly that waiter
// from the entry, and drops the whole entry once no waiters remain and
// it never completed.
func (e *Engine) handleDisconnect(d disconnect) {
	key := net.IP(d.ip[:])
	entry, ok := e.cache.Get(key)
	if !ok {
		return
	}

	remaining := entry.waiters[:0]
	for _, w := range entry.waiters {
		if w != d.pc {
			remaining = append(remaining, w)
		}
	}
	entry.waiters = remaining

	if len(entry.waiters) == 0 && !entry.Complete() {
		e.cache.Delete(key)
		metrics.ARPCacheSize.Set(float64(e.cache.Len()))
		e.log.Debug("arp cache evict", "ip", key, "reason", "disconnect with no resolution")
		return
	}
	e.cache.Put(entry)
}

var broadcastHW = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
