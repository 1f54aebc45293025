package tour

import (
	"net"
	"testing"
)

func ips(hosts ...byte) []net.IP {
	out := make([]net.IP, len(hosts))
	for i, h := range hosts {
		out[i] = net.IPv4(10, 0, 0, h).To4()
	}
	return out
}

// TestPrecedingEdgeS5 follows spec §8 S5: sequence v1 v2 v3 v1. The index
// carried in an as-received packet equals the receiving node's own
// position in the sequence (§4.4's "payload[index] = next hop" is set by
// the sender to name the receiver). So v3's arrival (position 2) carries
// index=2, and v1's terminal arrival (position 3) carries index=3; both
// edges are new, so a ping fires against the sender once at each,
// matching v2 at v3 and v3 at v1.
func TestPrecedingEdgeS5(t *testing.T) {
	seq := ips(1, 2, 3, 1) // v1 v2 v3 v1

	// Arrival at v3, index=2: L=1 (v2, sender), self=seq[2] (v3). New edge (v2->v3).
	sender, ok := precedingEdge(Packet{Header: Header{Index: 2}, Sequence: seq})
	if !ok || !sender.Equal(seq[1]) {
		t.Fatalf("index=2: precedingEdge() = (%v, %v), want (%v, true)", sender, ok, seq[1])
	}

	// Terminal arrival at v1, index=3: L=2 (v3, sender), self=seq[3] (v1). New edge (v3->v1).
	sender, ok = precedingEdge(Packet{Header: Header{Index: 3}, Sequence: seq})
	if !ok || !sender.Equal(seq[2]) {
		t.Fatalf("index=3: precedingEdge() = (%v, %v), want (%v, true)", sender, ok, seq[2])
	}
}

// TestPrecedingEdgeS6 follows spec §8 S6: sequence v1 v2 v3 v2 v3. v3's
// first arrival (position 2, index=2) records the edge v2->v3. v3's
// second, terminal arrival (position 4, index=4) sees that same edge
// again — sender=seq[3] (v2), self=seq[4] (v3), and v2->v3 already
// appeared at positions (1,2) — so no additional ping should fire.
func TestPrecedingEdgeS6(t *testing.T) {
	seq := ips(1, 2, 3, 2, 3) // v1 v2 v3 v2 v3

	// v3's first arrival, index=2: L=1 (v2, sender), self=seq[2] (v3). New edge (v2->v3).
	sender, ok := precedingEdge(Packet{Header: Header{Index: 2}, Sequence: seq})
	if !ok || !sender.Equal(seq[1]) {
		t.Fatalf("index=2: precedingEdge() = (%v, %v), want (%v, true)", sender, ok, seq[1])
	}

	// v3's second (terminal) arrival, index=4: L=3 (v2, sender), self=seq[4] (v3).
	// The edge v2->v3 already appeared at positions (1,2); dedup suppresses it.
	if _, ok := precedingEdge(Packet{Header: Header{Index: 4}, Sequence: seq}); ok {
		t.Fatalf("index=4: expected dedup to suppress the repeated (v2,v3) edge")
	}
}

// TestPrecedingEdgeNonPeriodic is a regression case for a bug an earlier
// version of precedingEdge had: comparing (sender, predecessor-of-sender)
// instead of (sender, self) against history. That only happened to match
// spec §8 S6 because the sequence there is periodic (v3 repeats with
// period 2, so predecessor-of-sender and self coincide); it is wrong on a
// non-periodic sequence. Sequence v1 v2 v3 v4 v3 v2 is legal (no
// *consecutive* duplicate hostnames). At v2's second arrival (position 5,
// index=5), the edge into this node is v3->v2, which never occurred
// before (the only earlier v3 edge is v3->v4, at positions 2->3) and must
// fire a ping; the old, buggy comparison matched it against that
// unrelated v3->v4 edge and wrongly suppressed the ping.
func TestPrecedingEdgeNonPeriodic(t *testing.T) {
	seq := ips(1, 2, 3, 4, 3, 2) // v1 v2 v3 v4 v3 v2

	sender, ok := precedingEdge(Packet{Header: Header{Index: 5}, Sequence: seq})
	if !ok {
		t.Fatalf("index=5: expected a new edge (v3->v2), got dedup suppression")
	}
	if !sender.Equal(seq[4]) {
		t.Fatalf("index=5: precedingEdge() sender = %v, want %v", sender, seq[4])
	}
}

func TestPrecedingEdgeOutOfRange(t *testing.T) {
	seq := ips(1, 2, 3)

	// index=1: the sender is the source and no hop precedes it (the tour's first hop).
	if _, ok := precedingEdge(Packet{Header: Header{Index: 1}, Sequence: seq}); ok {
		t.Fatalf("index=1: expected no preceding edge")
	}
}
