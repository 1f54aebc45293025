package arp

import (
	"net"
	"sync/atomic"
)

// pendingClient is the back-pointer from an incomplete cache Entry to the
// client stream connection awaiting its AREQ reply. Design Notes §9 calls
// for modeling this as a small side table rather than sharing mutable
// pointers between subsystems; here it is a single field owned by the
// cache Entry itself, since both live inside the same goroutine.
type pendingClient struct {
	conn     net.Conn
	resolved atomic.Bool
}

// disconnect identifies one waiter that dropped its connection before
// the engine resolved it, so the event loop can remove that exact
// waiter rather than guessing from the IP alone (an entry can have more
// than one waiter queued behind the same outstanding REQUEST).
type disconnect struct {
	ip [4]byte
	pc *pendingClient
}

// watch blocks reading from the pending connection. If the client closes
// the connection before the engine resolves and writes a reply, watch
// delivers a disconnect event identifying itself. If the engine resolves
// first, it marks the pendingClient resolved before closing the
// connection, and watch exits silently when its blocked Read unblocks.
func (p *pendingClient) watch(ip [4]byte, disconnects chan<- disconnect, done <-chan struct{}) {
	buf := make([]byte, 1)
	p.conn.Read(buf)
	if p.resolved.Load() {
		return
	}
	// The read unblocked (EOF, reset, or stray data) before the engine
	// resolved this entry. A client never sends anything after its
	// request, so any of those is treated as a disconnect.
	select {
	case disconnects <- disconnect{ip: ip, pc: p}:
	case <-done:
	}
}

// resolve marks p resolved so its watcher goroutine does not report a
// spurious disconnect, then writes b to the connection and closes it.
func (p *pendingClient) resolve(b []byte) error {
	p.resolved.Store(true)
	_, err := p.conn.Write(b)
	if cerr := p.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
