// Package dumper runs one capture session: it joins the group, opens the
// sink, and runs the capture loop until the lifetime elapses or the process
// is interrupted, then flushes and releases everything in order.
package dumper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"firestige.xyz/mcastdump/internal/capture"
	"firestige.xyz/mcastdump/internal/config"
	"firestige.xyz/mcastdump/internal/core"
	"firestige.xyz/mcastdump/internal/log"
	"firestige.xyz/mcastdump/internal/membership"
	"firestige.xyz/mcastdump/internal/metrics"
	"firestige.xyz/mcastdump/internal/sink"
)

// Session is a joined socket as seen by the dumper.
type Session interface {
	capture.PacketSource
	LocalAddr() net.Addr
	ID() uuid.UUID
	Close() error
}

// Joiner opens a socket on port and joins group.
type Joiner func(group netip.Addr, port uint16) (Session, error)

// JoinMulticast is the default Joiner.
func JoinMulticast(group netip.Addr, port uint16) (Session, error) {
	s, err := membership.OpenAndJoin(group, port)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Stop reasons reported in the exit summary.
const (
	ReasonLifetime  = "lifetime elapsed"
	ReasonInterrupt = "interrupted"
)

// Dumper owns the capture session for the life of the process.
type Dumper struct {
	cfg     *config.Config
	join    Joiner
	signals []os.Signal
	logger  log.Logger

	session       Session
	sink          *sink.Sink
	loop          *capture.Loop
	metricsServer *metrics.Server // nil if metrics disabled

	reason string
}

// Option configures a Dumper.
type Option func(*Dumper)

// WithJoiner replaces the multicast joiner.
func WithJoiner(j Joiner) Option {
	return func(d *Dumper) { d.join = j }
}

// WithSignals replaces the interrupt signals (SIGINT and SIGTERM by default).
func WithSignals(sigs ...os.Signal) Option {
	return func(d *Dumper) { d.signals = sigs }
}

// New creates a Dumper for a validated configuration.
func New(cfg *config.Config, opts ...Option) *Dumper {
	d := &Dumper{
		cfg:     cfg,
		join:    JoinMulticast,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		logger:  log.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start joins the group, opens the sink and starts the metrics endpoint.
// On failure everything opened so far is released and the error is returned
// unchanged for classification with errors.Is.
func (d *Dumper) Start() error {
	// 1. Group membership
	session, err := d.join(d.cfg.Group(), d.cfg.UDPPort())
	if err != nil {
		return err
	}
	d.session = session
	d.logger = d.logger.WithField("session", session.ID().String())
	d.logger.WithFields(map[string]interface{}{
		"group": d.cfg.Group().String(),
		"port":  d.cfg.UDPPort(),
		"local": session.LocalAddr().String(),
	}).Info("joined multicast group")

	// 2. Output sink
	out, err := sink.Open(d.cfg.Output)
	if err != nil {
		d.closeSession()
		return err
	}
	d.sink = out

	// 3. Metrics endpoint
	if d.cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(d.cfg.Metrics.Listen, d.cfg.Metrics.Path)
		if err := srv.Start(); err != nil {
			d.sink.Close()
			d.closeSession()
			return fmt.Errorf("%w: %w", core.ErrArgument, err)
		}
		d.metricsServer = srv
	}
	metrics.SetSession(d.cfg.Group().String(), d.cfg.UDPPort(), session.ID().String())

	d.loop = capture.NewLoop(d.session, d.sink, capture.WithLogger(d.logger))
	return nil
}

// Run blocks in the capture loop until the lifetime elapses, an interrupt
// signal arrives or ctx is cancelled, then stops the session. Clean
// termination returns nil; a receive or sink failure is returned after the
// same orderly stop.
func (d *Dumper) Run(ctx context.Context) error {
	if d.loop == nil {
		return errors.New("dumper not started")
	}

	ctx, stopSignals := signal.NotifyContext(ctx, d.signals...)
	defer stopSignals()
	// After the first interrupt a second one falls back to the default
	// disposition and kills the process, even if a sink write is stuck.
	context.AfterFunc(ctx, stopSignals)

	runCtx := ctx
	if lifetime := d.cfg.Lifetime(); lifetime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, lifetime)
		defer cancel()
	}

	d.logger.WithFields(map[string]interface{}{
		"sink":     d.sink.Name(),
		"lifetime": d.cfg.Lifetime().String(),
	}).Debug("capture started")

	runErr := d.loop.Run(runCtx)
	if runErr == nil {
		d.reason = ReasonInterrupt
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			d.reason = ReasonLifetime
		}
	}

	if err := d.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Stop flushes and closes the sink, closes the socket and stops the
// metrics endpoint. Only a sink flush failure is returned.
func (d *Dumper) Stop() error {
	var flushErr error
	if d.sink != nil {
		if err := d.sink.Close(); err != nil {
			flushErr = fmt.Errorf("%w: flush %s: %w", core.ErrSinkWrite, d.sink.Name(), err)
		}
		d.sink = nil
	}

	d.closeSession()

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			d.logger.WithError(err).Warn("error stopping metrics server")
		}
		d.metricsServer = nil
	}

	if d.loop != nil {
		fields := d.loop.Stats().Fields()
		if d.reason != "" {
			fields["reason"] = d.reason
		}
		d.logger.WithFields(fields).Info("capture finished")
	}
	return flushErr
}

// Reason reports why the last Run ended cleanly; empty after a failure.
func (d *Dumper) Reason() string {
	return d.reason
}

// Stats returns the capture statistics, or nil before Start.
func (d *Dumper) Stats() *capture.Stats {
	if d.loop == nil {
		return nil
	}
	return d.loop.Stats()
}

func (d *Dumper) closeSession() {
	if d.session == nil {
		return
	}
	if err := d.session.Close(); err != nil {
		d.logger.WithError(err).Warn("error closing socket")
	}
	d.session = nil
}
