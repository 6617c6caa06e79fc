// Package capture implements the receive/write cycle: one datagram is read
// from the socket and its payload written to the sink, in arrival order,
// until the context ends.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"firestige.xyz/mcastdump/internal/core"
	"firestige.xyz/mcastdump/internal/log"
	"firestige.xyz/mcastdump/internal/metrics"
)

// PacketSource is the read side of a joined socket. *net.UDPConn and
// *membership.Session satisfy it.
type PacketSource interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	SetReadDeadline(t time.Time) error
}

// expired is a deadline in the past; setting it wakes a blocked read.
var expired = time.Unix(1, 0)

// Loop copies datagram payloads from a PacketSource to a writer.
type Loop struct {
	src    PacketSource
	sink   io.Writer
	buf    []byte
	stats  *Stats
	logger log.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithBufferSize sets the receive buffer size. Payloads longer than the
// buffer are truncated by the kernel, so the default is core.MaxDatagramSize.
func WithBufferSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.buf = make([]byte, n)
		}
	}
}

// WithLogger sets the logger used for per-datagram trace output.
func WithLogger(logger log.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a loop reading from src and writing to sink.
func NewLoop(src PacketSource, sink io.Writer, opts ...Option) *Loop {
	l := &Loop{
		src:    src,
		sink:   sink,
		stats:  NewStats(),
		logger: log.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.buf == nil {
		l.buf = make([]byte, core.MaxDatagramSize)
	}
	return l
}

// Run blocks in the receive/write cycle until ctx is done, then returns nil.
// There is no other way out except a failure: a read error wraps
// core.ErrReceive and a write error wraps core.ErrSinkWrite.
//
// When ctx ends the pending read is woken through an expired read deadline.
// A datagram that completes after that point is not written.
func (l *Loop) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		_ = l.src.SetReadDeadline(expired)
	})
	defer stop()

	for {
		n, from, err := l.src.ReadFrom(l.buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			metrics.ReceiveErrorsTotal.Inc()
			return fmt.Errorf("%w: %w", core.ErrReceive, err)
		}

		d := core.Datagram{Payload: l.buf[:n], Source: from, Timestamp: time.Now()}
		if err := l.write(d); err != nil {
			return err
		}
	}
}

func (l *Loop) write(d core.Datagram) error {
	n, err := l.sink.Write(d.Payload)
	if err != nil {
		if errors.Is(err, core.ErrSinkWrite) {
			return err
		}
		return fmt.Errorf("%w: %w", core.ErrSinkWrite, err)
	}
	if n != d.Len() {
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", core.ErrSinkWrite, n, d.Len(), io.ErrShortWrite)
	}

	l.stats.record(d.Payload, d.Timestamp)
	metrics.ObserveDatagram(d.Len())

	if l.logger.IsTraceEnabled() {
		l.logger.WithFields(map[string]interface{}{
			"from": d.Source,
			"size": d.Len(),
		}).Trace("datagram written")
	}
	return nil
}

// Stats returns the loop's running statistics.
func (l *Loop) Stats() *Stats {
	return l.stats
}
