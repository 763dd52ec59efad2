// Package modem drives an AT-command WiFi modem over a byte transport.
//
// The Device owns the receive ring the transport fills and turns the
// shared serial stream into a synchronous command interface: compose a
// command line, transmit it, then poll the ring until an expected token
// shows up or a deadline passes. All waiting is cooperative and bounded;
// nothing here blocks past its timeout and nothing can be cancelled
// early, callers pick deadlines instead.
//
// Response scanning happens in caller-supplied accumulators, so an
// exchange that needs "wait for the OK, then keep waiting for a later
// unsolicited line" retains one handle across both waits instead of
// relying on leftover state inside the Device.
//
// A Device is owned by the single polling task and holds no locks.
package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quirell/espweb/core/buffer"
	"github.com/quirell/espweb/core/clock"
	"github.com/quirell/espweb/core/codec"
	"github.com/quirell/espweb/core/rxring"
	"github.com/quirell/espweb/transport"
)

const (
	// DefaultYield is how long to sleep when a poll iteration finds the
	// ring empty.
	DefaultYield = time.Millisecond

	defaultScratchSize = 128
	defaultCommandBuf  = 256
)

// timeoutError carries the Timeout method net-style callers probe for.
type timeoutError struct{}

func (timeoutError) Error() string { return "wait timed out" }
func (timeoutError) Timeout() bool { return true }

// ErrTimeout reports a wait that reached its deadline without the
// expected token arriving. Recoverable; the caller decides whether to
// retry.
var ErrTimeout error = timeoutError{}

// ErrNoTransport reports a Device used before a transport was
// configured.
var ErrNoTransport = errors.New("no transport configured")

// Config configures a Device.
type Config struct {
	// Transport carries bytes to and from the modem.
	Transport transport.Transport

	// Ring is the receive ring the transport fills. A nil Ring gets a
	// fresh one of rxring.DefaultCapacity.
	Ring *rxring.Ring

	// CommandBufSize fixes the compose buffer for outgoing command
	// lines. Default 256.
	CommandBufSize int

	// ScratchSize fixes the per-poll drain buffer. Default 128.
	ScratchSize int

	// ResponseAccSize fixes the Device's own response accumulator used
	// by the command helpers. Default buffer.DefaultCapacity.
	ResponseAccSize int

	// Yield is the sleep between empty polls. Default DefaultYield.
	Yield time.Duration

	// Clock supplies time; defaults to the wall clock.
	Clock *clock.Clock

	// Logger for link events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
}

// Device is the synchronous command channel to the modem.
type Device struct {
	tr      transport.Transport
	ring    *rxring.Ring
	scratch []byte
	txbuf   []byte
	resp    *buffer.Accumulator
	yield   time.Duration
	clk     *clock.Clock
	log     *slog.Logger
}

// New creates a Device with the given configuration.
func New(cfg Config) *Device {
	ring := cfg.Ring
	if ring == nil {
		ring = rxring.New(rxring.DefaultCapacity)
	}
	if cfg.CommandBufSize <= 0 {
		cfg.CommandBufSize = defaultCommandBuf
	}
	if cfg.ScratchSize <= 0 {
		cfg.ScratchSize = defaultScratchSize
	}
	if cfg.Yield <= 0 {
		cfg.Yield = DefaultYield
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{
		tr:      cfg.Transport,
		ring:    ring,
		scratch: make([]byte, cfg.ScratchSize),
		txbuf:   make([]byte, 0, cfg.CommandBufSize),
		resp:    buffer.New(cfg.ResponseAccSize),
		yield:   cfg.Yield,
		clk:     clk,
		log:     logger.WithGroup("modem"),
	}
}

// Ring exposes the receive ring for wiring into a transport.
func (d *Device) Ring() *rxring.Ring { return d.ring }

// Start opens the transport and points its receive side at the ring.
func (d *Device) Start(ctx context.Context) error {
	if d.tr == nil {
		return ErrNoTransport
	}
	return d.tr.Start(ctx, d.ring)
}

// Stop shuts the transport down.
func (d *Device) Stop() error {
	if d.tr == nil {
		return nil
	}
	return d.tr.Stop()
}

// Drain copies unread received bytes into dst and returns the count.
// It never blocks and never re-delivers a byte. With no ring or an
// empty dst it returns 0 and changes nothing.
func (d *Device) Drain(dst []byte) int {
	if d.ring == nil || len(dst) == 0 {
		return 0
	}
	return d.ring.Drain(dst)
}

// DiscardInput throws away up to n received bytes, waiting at most
// timeout for them to arrive, and returns how many were dropped. A
// short count after the deadline is the caller's to deal with.
func (d *Device) DiscardInput(n int, timeout time.Duration) int {
	if d.ring == nil || n <= 0 {
		return 0
	}
	start := d.clk.Now()
	dropped := 0
	for dropped < n {
		m := d.ring.Discard(n - dropped)
		dropped += m
		if dropped >= n || d.clk.Since(start) >= timeout {
			break
		}
		if m == 0 {
			d.clk.Sleep(d.yield)
		}
	}
	return dropped
}

// Await polls the link until pattern occurs in acc or timeout passes.
// Drained bytes are appended to acc, truncating silently once it is
// full. Content already in acc counts, so a retained handle can match
// immediately. Returns nil at the earliest match, ErrTimeout otherwise.
func (d *Device) Await(acc *buffer.Accumulator, pattern string, timeout time.Duration) error {
	start := d.clk.Now()
	for {
		n := d.Drain(d.scratch)
		if n > 0 {
			if took := acc.Append(d.scratch[:n]); took < n {
				d.log.Debug("response accumulator full, bytes dropped", "dropped", n-took)
			}
		}
		if acc.Contains(pattern) {
			return nil
		}
		if d.clk.Since(start) >= timeout {
			return ErrTimeout
		}
		if n == 0 {
			d.clk.Sleep(d.yield)
		}
	}
}

// ExecAwait resets acc, transmits the AT command built from name and
// args, then waits for pattern. Compose and transport failures come
// back distinct from ErrTimeout.
func (d *Device) ExecAwait(acc *buffer.Accumulator, pattern string, timeout time.Duration, name string, args ...any) error {
	acc.Reset()

	line, err := codec.AppendCommand(d.txbuf[:0], name, args...)
	if err != nil {
		return fmt.Errorf("composing AT%s: %w", name, err)
	}
	if _, err := d.WriteRaw(line); err != nil {
		return fmt.Errorf("sending AT%s: %w", name, err)
	}
	return d.Await(acc, pattern, timeout)
}

// Exec transmits the command and waits for the terminal OK.
func (d *Device) Exec(acc *buffer.Accumulator, timeout time.Duration, name string, args ...any) error {
	return d.ExecAwait(acc, codec.TokenOK, timeout, name, args...)
}

// WriteRaw transmits p unmodified, for payload phases that follow a
// separate announce command.
func (d *Device) WriteRaw(p []byte) (int, error) {
	if d.tr == nil {
		return 0, ErrNoTransport
	}
	return d.tr.Write(p)
}
