//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package membership

import (
	"fmt"
	"net"
	"net/netip"
	"runtime"
	"time"

	"github.com/google/uuid"

	"firestige.xyz/mcastdump/internal/core"
)

// Session is unavailable on this platform.
type Session struct{}

// OpenAndJoin always fails: socket options are set through golang.org/x/sys/unix.
func OpenAndJoin(group netip.Addr, port uint16) (*Session, error) {
	return nil, fmt.Errorf("%w: unsupported platform %s", core.ErrSocketCreate, runtime.GOOS)
}

func (s *Session) ReadFrom(b []byte) (int, net.Addr, error) { return 0, nil, net.ErrClosed }
func (s *Session) SetReadDeadline(t time.Time) error      { return nil }
func (s *Session) LocalAddr() net.Addr                    { return nil }
func (s *Session) Group() netip.Addr                      { return netip.Addr{} }
func (s *Session) ID() uuid.UUID                          { return uuid.Nil }
func (s *Session) Close() error                           { return nil }
