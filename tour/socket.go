package tour

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// rawSocket is a raw IPv4 socket with IP_HDRINCL set, so every write
// supplies its own IPv4 header (spec §4.4: "raw IP socket for the
// custom tour protocol (IP_HDRINCL set...)"). Grounded on
// _examples/other_examples/408ed90b_malbeclabs-doublezero__tools-uping-pkg-uping-sender.go.go's
// direct golang.org/x/sys/unix socket/sendto/recvfrom usage, generalized
// from IPPROTO_ICMP to our own protocol number with header inclusion.
type rawSocket struct {
	fd int
}

func newRawSocket() (*rawSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, Protocol)
	if err != nil {
		return nil, fmt.Errorf("tour: open raw socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tour: set IP_HDRINCL: %w", err)
	}
	return &rawSocket{fd: fd}, nil
}

// Send writes a complete IPv4 datagram (header included) to dst.
func (s *rawSocket) Send(dst net.IP, b []byte) error {
	ip4 := dst.To4()
	if ip4 == nil {
		return fmt.Errorf("tour: %v is not an IPv4 address", dst)
	}
	addr := &unix.SockaddrInet4{}
	copy(addr.Addr[:], ip4)
	return unix.Sendto(s.fd, b, 0, addr)
}

// Recv blocks until a datagram arrives and returns it.
func (s *rawSocket) Recv(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	return n, err
}

func (s *rawSocket) Close() error {
	return unix.Close(s.fd)
}
