//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

// Package membership opens the UDP socket a capture reads from and joins it
// to one IPv4 multicast group.
package membership

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"firestige.xyz/mcastdump/internal/core"
)

// Session is a bound, group-joined socket. OpenAndJoin never returns a
// partially set up Session.
type Session struct {
	id    uuid.UUID
	group netip.Addr
	conn  *net.UDPConn

	closeOnce sync.Once
	closeErr  error
}

// OpenAndJoin creates a UDP socket with address and port reuse enabled,
// binds it to 0.0.0.0:port and joins group on the default interface.
//
// Errors wrap core.ErrSocketCreate, core.ErrBind or core.ErrJoin and name
// the step that failed. Nothing is left open on failure.
func OpenAndJoin(group netip.Addr, port uint16) (*Session, error) {
	if !group.Is4() {
		return nil, fmt.Errorf("%w: %s is not an IPv4 address", core.ErrJoin, group)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSocketCreate, os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)

	if err := enableReuse(fd); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %w", core.ErrSocketCreate, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: bind 0.0.0.0:%d: %w", core.ErrBind, port, err)
	}

	conn, err := attach(fd, port)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSocketCreate, err)
	}

	// A nil interface lets the kernel pick one, like INADDR_ANY in ip_mreq.
	if err := ipv4.NewPacketConn(conn).JoinGroup(nil, &net.UDPAddr{IP: group.AsSlice()}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: join %s: %w", core.ErrJoin, group, err)
	}

	return &Session{
		id:    uuid.New(),
		group: group,
		conn:  conn,
	}, nil
}

func enableReuse(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
	}
	return nil
}

// attach hands the bound descriptor to the runtime poller so reads honour
// deadlines. fd is closed in every case; the returned conn owns a duplicate.
func attach(fd int, port uint16) (*net.UDPConn, error) {
	f := os.NewFile(uintptr(fd), fmt.Sprintf("udp4:0.0.0.0:%d", port))
	defer f.Close()

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("attach socket: %w", err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}

// ReadFrom blocks until one datagram arrives and copies its payload into b.
func (s *Session) ReadFrom(b []byte) (int, net.Addr, error) {
	return s.conn.ReadFrom(b)
}

// SetReadDeadline bounds the current and future ReadFrom calls. A deadline in
// the past wakes a blocked read immediately.
func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Session) Group() netip.Addr {
	return s.group
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Close releases the socket. The kernel drops the group membership with it.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
