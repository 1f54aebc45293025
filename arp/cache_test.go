package arp

import (
	"net"
	"testing"
)

func TestCachePutGetDelete(t *testing.T) {
	c := NewCache()

	ip := net.IPv4(10, 0, 0, 1).To4()
	if _, ok := c.Get(ip); ok {
		t.Fatalf("unexpected hit on empty cache")
	}

	e := &Entry{IP: ip, MAC: net.HardwareAddr{0, 1, 2, 3, 4, 5}, IfIndex: 2, HWType: 1}
	c.Put(e)

	got, ok := c.Get(ip)
	if !ok {
		t.Fatalf("expected hit after Put")
	}
	if got != e {
		t.Fatalf("Get returned a different entry than Put inserted")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	c.Delete(ip)
	if _, ok := c.Get(ip); ok {
		t.Fatalf("unexpected hit after Delete")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}

// TestCachePutReplacesByKey exercises invariant 1: at most one entry per
// IPv4 key.
func TestCachePutReplacesByKey(t *testing.T) {
	c := NewCache()
	ip := net.IPv4(10, 0, 0, 1).To4()

	c.Put(&Entry{IP: ip, MAC: net.HardwareAddr{0, 0, 0, 0, 0, 1}})
	c.Put(&Entry{IP: ip, MAC: net.HardwareAddr{0, 0, 0, 0, 0, 2}})

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after replacing the same key", c.Len())
	}
	got, _ := c.Get(ip)
	if !got.MAC.Equal(net.HardwareAddr{0, 0, 0, 0, 0, 2}) {
		t.Fatalf("Get returned stale entry: %+v", got)
	}
}

func TestEntryComplete(t *testing.T) {
	tests := []struct {
		desc string
		e    *Entry
		want bool
	}{
		{
			desc: "resolved, no waiters",
			e:    &Entry{MAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}},
			want: true,
		},
		{
			desc: "zero MAC",
			e:    &Entry{MAC: net.HardwareAddr{0, 0, 0, 0, 0, 0}},
			want: false,
		},
		{
			desc: "nil MAC",
			e:    &Entry{},
			want: false,
		},
		{
			desc: "resolved but still has a waiter",
			e: &Entry{
				MAC:     net.HardwareAddr{1, 2, 3, 4, 5, 6},
				waiters: []*pendingClient{{}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := tt.e.Complete(); got != tt.want {
				t.Fatalf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
