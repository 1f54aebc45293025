// Package mcast implements the end-of-tour multicast termination
// handshake: an "identify" broadcast answered once by every member,
// followed by a bounded-silence wind-down (spec §4.6). Grounded on
// _examples/therealutkarshpriyadarshi-network/pkg/multicast/multicast.go's
// golang.org/x/net/ipv4 PacketConn join/leave pattern, adapted from a
// generic group-membership helper to this protocol's specific
// identify/reply exchange.
package mcast

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/arptour/arptour/internal/metrics"
	"golang.org/x/net/ipv4"
)

// SilenceTimeout is how long a participant waits for any multicast
// datagram before concluding the handshake is over (spec §4.6).
const SilenceTimeout = 5 * time.Second

const identifyMarker = "identify"

// Handshake is one node's membership in a tour's termination group. A
// node joins at most once per tour: Join opens and binds the group,
// SendIdentify announces (used by the terminal node), and Run drives
// the listen/respond/silence loop every member — including the node
// that announced — shares (spec §4.6: "Every node receiving a message
// ... responds once ... Each node then enters a bounded wait").
// Keeping one Handshake per node, rather than a fresh one per role,
// avoids a second bind of the same multicast port if a node later
// turns out to be the terminal one after already joining passively.
type Handshake struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	group *net.UDPAddr
	log   *slog.Logger
}

// Join binds to port and joins group with TTL 1, returning a Handshake
// ready to send and receive termination-handshake messages.
func Join(group net.IP, port uint16, log *slog.Logger) (*Handshake, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("mcast: listen: %w", err)
	}

	groupAddr := &net.UDPAddr{IP: group, Port: int(port)}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, groupAddr); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mcast: join group: %w", err)
	}
	if err := pc.SetMulticastTTL(1); err != nil {
		pc.LeaveGroup(nil, groupAddr)
		conn.Close()
		return nil, fmt.Errorf("mcast: set multicast ttl: %w", err)
	}

	return &Handshake{conn: conn, pc: pc, group: groupAddr, log: log}, nil
}

// Close leaves the group and releases the socket.
func (h *Handshake) Close() error {
	h.pc.LeaveGroup(nil, h.group)
	return h.conn.Close()
}

// SendIdentify announces this node to the group (spec §4.6: "the node
// sends a well-known text message ... containing the word 'identify'
// and the sender hostname").
func (h *Handshake) SendIdentify(hostname string) error {
	_, err := h.conn.WriteToUDP(identifyMessage(hostname), h.group)
	return err
}

// Run reads multicast messages until the group has been silent for
// SilenceTimeout. It answers the first "identify" it sees with this
// node's own identify message, then keeps reading — without resetting
// anything on further identify traffic — purely to track silence (spec
// §4.6: "continues reading multicast messages, resetting nothing").
// responded starts true when this node itself has already sent an
// identify message via SendIdentify before calling Run.
func (h *Handshake) Run(ctx context.Context, hostname string, responded bool) error {
	self := identifyMessage(hostname)
	buf := make([]byte, 512)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		h.conn.SetReadDeadline(time.Now().Add(SilenceTimeout))
		n, _, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				h.log.Info("tour multicast group silent, terminating")
				return nil
			}
			return fmt.Errorf("mcast: read: %w", err)
		}

		msg := buf[:n]
		if !bytes.Contains(msg, []byte(identifyMarker)) {
			continue
		}
		metrics.MulticastMessagesReceived.WithLabelValues("identify").Inc()
		h.log.Info("tour identify received", "message", string(msg))

		if responded {
			continue
		}
		if _, err := h.conn.WriteToUDP(self, h.group); err != nil {
			h.log.Warn("mcast: send identify reply", "error", err)
			continue
		}
		responded = true
	}
}

func identifyMessage(hostname string) []byte {
	return []byte(fmt.Sprintf("%s %s", identifyMarker, hostname))
}
