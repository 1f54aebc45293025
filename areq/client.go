// Package areq implements the synchronous client side of the AREQ
// protocol: a single call that asks a local ARP engine (package arp) to
// resolve an IPv4 address to a hardware address record over a Unix
// domain stream socket. Grounded on the request/response shape of
// _examples/other_examples/8e235f28_caser789-arp__client.go.go's Client,
// adapted from a raw-socket ARP request into a local-IPC round trip per
// spec §4.3.
package areq

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/arptour/arptour/arp"
	"github.com/arptour/arptour/frame"
	"github.com/arptour/arptour/internal/metrics"
)

// Timeout is the bounded deadline for a single AREQ call (spec §4.3).
const Timeout = 3 * time.Second

// ErrTimeout is returned when no reply arrives within Timeout.
var ErrTimeout = errors.New("areq: timeout waiting for reply")

// Resolve performs a single synchronous AREQ call to the ARP engine
// listening in namespace ns, asking it to resolve ip. It opens a fresh
// connection from a unique anonymous path each call, per spec §6.
func Resolve(ns string, ip net.IP) (frame.HWAddrRecord, error) {
	start := time.Now()
	rec, err := resolve(ns, ip)
	metrics.AREQClientLatency.Observe(time.Since(start).Seconds())
	return rec, err
}

func resolve(ns string, ip net.IP) (frame.HWAddrRecord, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return frame.HWAddrRecord{}, fmt.Errorf("areq: %v is not an IPv4 address", ip)
	}

	localPath, err := anonymousPath(ns)
	if err != nil {
		return frame.HWAddrRecord{}, err
	}

	conn, err := net.DialUnix("unix",
		&net.UnixAddr{Name: localPath, Net: "unix"},
		&net.UnixAddr{Name: arp.SocketPath(ns), Net: "unix"},
	)
	// The client's own bound path only exists to give this connection a
	// unique local name; it is never accepted on, so unlink it right
	// away regardless of dial outcome.
	os.Remove(localPath)
	if err != nil {
		return frame.HWAddrRecord{}, fmt.Errorf("areq: dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return frame.HWAddrRecord{}, err
	}

	if _, err := conn.Write(ip4); err != nil {
		return frame.HWAddrRecord{}, fmt.Errorf("areq: write: %w", err)
	}

	buf := make([]byte, frame.HWAddrRecordLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return frame.HWAddrRecord{}, ErrTimeout
		}
		return frame.HWAddrRecord{}, fmt.Errorf("areq: short read: %w", err)
	}

	var rec frame.HWAddrRecord
	if err := rec.UnmarshalBinary(buf); err != nil {
		return frame.HWAddrRecord{}, err
	}
	return rec, nil
}

// anonymousPath builds a unique client socket path matching the
// template in spec §6, /tmp/<ns>-tourApplication-XXXXXX.
func anonymousPath(ns string) (string, error) {
	f, err := os.CreateTemp("", ns+"-tourApplication-*")
	if err != nil {
		return "", fmt.Errorf("areq: %w", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	return filepath.Clean(path), nil
}
