package arp

import "net"

// Key is the 4-byte IPv4 address used to key the cache (spec §3: "Cache is
// keyed solely on IPv4").
type Key [4]byte

func keyOf(ip net.IP) Key {
	var k Key
	copy(k[:], ip.To4())
	return k
}

// Entry is a single ARP cache record (spec §3).
//
// An Entry with one or more waiters is incomplete: its MAC may still be the
// zero value, and it exists only to correlate a forthcoming ARP REPLY with
// the client connections that triggered (or joined) the request. An Entry
// is complete when it has no waiters and a non-zero MAC.
//
// The spec's data model describes a single "pending-client handle" per
// entry, matching the reference implementation's one-fd-per-entry table.
// That table has no answer for a second AREQ arriving for an IP that is
// already pending: the reference's single-slot bookkeeping would silently
// drop the first waiter. This cache instead keeps a slice, so every AREQ
// caller for the same unresolved IP is queued and gets the same eventual
// reply, without emitting a second ARP REQUEST (see Cache.Put /
// engine.go's handling of a repeat AREQ against an incomplete entry).
type Entry struct {
	IP      net.IP
	MAC     net.HardwareAddr
	IfIndex int
	HWType  uint16
	waiters []*pendingClient
}

// Complete reports whether e has a resolved, non-zero MAC and no
// outstanding client waiting on it.
func (e *Entry) Complete() bool {
	return len(e.waiters) == 0 && len(e.MAC) == 6 && !isZeroMAC(e.MAC)
}

func isZeroMAC(mac net.HardwareAddr) bool {
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}

// Cache is the ARP engine's address table. It is owned exclusively by the
// engine's event loop goroutine; nothing else ever touches it, so it needs
// no locking (Design Notes §9: "no cross-process sharing", generalized here
// to no cross-goroutine sharing).
type Cache struct {
	entries map[Key]*Entry
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*Entry)}
}

// Get returns the entry for ip, if any.
func (c *Cache) Get(ip net.IP) (*Entry, bool) {
	e, ok := c.entries[keyOf(ip)]
	return e, ok
}

// Put inserts or replaces the entry for e.IP.
func (c *Cache) Put(e *Entry) {
	c.entries[keyOf(e.IP)] = e
}

// Delete removes the entry for ip, if present.
func (c *Cache) Delete(ip net.IP) {
	delete(c.entries, keyOf(ip))
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return len(c.entries)
}
