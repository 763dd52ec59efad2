// Package httpd serves HTTP requests arriving through a WiFi modem's
// multiplexed TCP links.
//
// The modem interleaves inbound-data frames with command responses on
// one serial stream. The Server polls that stream, reassembles one
// frame at a time into a bounded accumulator, parses the request line,
// dispatches to a registered route, and answers through the firmware's
// length-announced send handshake.
//
// Everything runs on the single polling task: Poll never blocks beyond
// its internal bounded waits, and handlers run synchronously inside the
// Poll that dispatched them. The Server holds no locks and must not be
// shared across goroutines.
package httpd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quirell/espweb/core/buffer"
	"github.com/quirell/espweb/core/clock"
	"github.com/quirell/espweb/core/codec"
	"github.com/quirell/espweb/device/conntrack"
	"github.com/quirell/espweb/device/modem"
)

// Modem is the slice of the device layer the server needs: draining
// and discarding inbound bytes, token-synchronized command exchanges,
// raw payload writes, and closing idle links.
type Modem interface {
	Drain(dst []byte) int
	DiscardInput(n int, timeout time.Duration) int
	Await(acc *buffer.Accumulator, pattern string, timeout time.Duration) error
	ExecAwait(acc *buffer.Accumulator, pattern string, timeout time.Duration, name string, args ...any) error
	WriteRaw(p []byte) (int, error)
	CloseConn(id int) error
}

var _ Modem = (*modem.Device)(nil)

const (
	// DefaultAccumulatorSize bounds one reassembled frame: header plus
	// as much payload as the server will retain.
	DefaultAccumulatorSize = 1024
	// DefaultResponseBufSize bounds one composed response.
	DefaultResponseBufSize = 1024
	// DefaultMaxRoutes fixes the route table capacity.
	DefaultMaxRoutes = 8
	// DefaultSendTimeout bounds each phase of the send handshake.
	DefaultSendTimeout = 5 * time.Second
	// DefaultDiscardTimeout bounds pulling an oversized frame's surplus
	// off the wire.
	DefaultDiscardTimeout = 500 * time.Millisecond
	// DefaultYield paces the Run loop when nothing is arriving.
	DefaultYield = time.Millisecond

	defaultScratchSize = 128
)

// State is the reassembler's position between polls.
type State int

const (
	// StateIdle means no partial frame is pending.
	StateIdle State = iota
	// StateHeaderWait means a marker was seen but its header is not yet
	// fully parseable.
	StateHeaderWait
	// StatePayloadWait means the header is parsed and payload bytes are
	// still arriving.
	StatePayloadWait
	// StateReady means a full payload is buffered; resolved within the
	// same poll by dispatching.
	StateReady
	// StateDiscarding means surplus payload is being pulled off the
	// wire and thrown away; resolved within the same poll.
	StateDiscarding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHeaderWait:
		return "header-wait"
	case StatePayloadWait:
		return "payload-wait"
	case StateReady:
		return "ready"
	case StateDiscarding:
		return "discarding"
	default:
		return "unknown"
	}
}

// PollResult reports what one poll cycle did.
type PollResult int

const (
	// PollIdle means nothing actionable arrived.
	PollIdle PollResult = iota
	// PollBusy means Poll was re-entered while a cycle was running.
	PollBusy
	// PollWaiting means a partial frame is pending more bytes.
	PollWaiting
	// PollDispatched means a request was handed to a handler.
	PollDispatched
	// PollDropped means a frame was abandoned.
	PollDropped
)

func (r PollResult) String() string {
	switch r {
	case PollIdle:
		return "idle"
	case PollBusy:
		return "busy"
	case PollWaiting:
		return "waiting"
	case PollDispatched:
		return "dispatched"
	case PollDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Config configures a Server.
type Config struct {
	// Device is the modem the server polls and responds through.
	Device Modem

	// Conns tracks per-connection activity. A nil Conns gets a default
	// table whose eviction closes the link on the modem.
	Conns *conntrack.Table

	// AccumulatorSize fixes the reassembly buffer.
	// Default DefaultAccumulatorSize.
	AccumulatorSize int

	// ResponseBufSize fixes the response compose buffer.
	// Default DefaultResponseBufSize.
	ResponseBufSize int

	// ScratchSize fixes the per-poll drain buffer. Default 128.
	ScratchSize int

	// MaxRoutes fixes the route table capacity.
	// Default DefaultMaxRoutes.
	MaxRoutes int

	// SendTimeout bounds each phase of the send handshake.
	// Default DefaultSendTimeout.
	SendTimeout time.Duration

	// DiscardTimeout bounds surplus discard for oversized frames.
	// Default DefaultDiscardTimeout.
	DiscardTimeout time.Duration

	// Yield is the Run loop's sleep when a poll made no progress.
	// Default DefaultYield.
	Yield time.Duration

	// Clock supplies time; defaults to the wall clock.
	Clock *clock.Clock

	// Logger for server events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
}

// Server reassembles, dispatches and answers requests from the modem.
type Server struct {
	cfg   Config
	dev   Modem
	conns *conntrack.Table
	clk   *clock.Clock
	log   *slog.Logger

	routes  []route
	acc     *buffer.Accumulator
	sendAcc *buffer.Accumulator
	scratch []byte
	respBuf []byte

	state      State
	polling    bool
	frameStart time.Time
	stats      serverStats
}

// New creates a Server with the given configuration.
func New(cfg Config) *Server {
	if cfg.AccumulatorSize <= 0 {
		cfg.AccumulatorSize = DefaultAccumulatorSize
	}
	if cfg.ResponseBufSize <= 0 {
		cfg.ResponseBufSize = DefaultResponseBufSize
	}
	if cfg.ScratchSize <= 0 {
		cfg.ScratchSize = defaultScratchSize
	}
	if cfg.MaxRoutes <= 0 {
		cfg.MaxRoutes = DefaultMaxRoutes
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.DiscardTimeout <= 0 {
		cfg.DiscardTimeout = DefaultDiscardTimeout
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
	log := logger.WithGroup("httpd")

	conns := cfg.Conns
	if conns == nil {
		dev := cfg.Device
		conns = conntrack.New(conntrack.Config{
			Clock:  clk,
			Logger: logger,
			OnEvict: func(id conntrack.ConnID) {
				if err := dev.CloseConn(int(id)); err != nil {
					log.Warn("closing evicted connection", "conn", int(id), "error", err)
				}
			},
		})
	}

	return &Server{
		cfg:     cfg,
		dev:     cfg.Device,
		conns:   conns,
		clk:     clk,
		log:     log,
		routes:  make([]route, 0, cfg.MaxRoutes),
		acc:     buffer.New(cfg.AccumulatorSize),
		sendAcc: buffer.New(cfg.AccumulatorSize),
		scratch: make([]byte, cfg.ScratchSize),
		respBuf: make([]byte, 0, cfg.ResponseBufSize),
	}
}

// Conns exposes the connection table for diagnostics handlers.
func (s *Server) Conns() *conntrack.Table { return s.conns }

// State returns the reassembler's position between polls.
func (s *Server) State() State { return s.state }

// Poll runs one reassembly cycle: drain, scan, and either wait, drop,
// or dispatch exactly one frame. It never blocks beyond the bounded
// surplus discard and whatever the dispatched handler does. Re-entrant
// calls (a handler polling from inside its own dispatch) are refused
// with PollBusy.
func (s *Server) Poll() PollResult {
	if s.polling {
		return PollBusy
	}
	s.polling = true
	defer func() { s.polling = false }()

	n := s.dev.Drain(s.scratch)
	if n > 0 && n > s.acc.Free() {
		// Safety valve: losing the partial frame beats wedging on one
		// that can no longer fit.
		s.log.Warn("reassembly buffer overflow, frame abandoned",
			"buffered", s.acc.Len(), "incoming", n)
		return s.abandon()
	}
	if n > 0 {
		s.acc.Append(s.scratch[:n])
	}

	idx := codec.FindMarker(s.acc.Bytes())
	if idx < 0 {
		return PollIdle
	}

	hdr, payloadOff, err := codec.ParseIPDHeader(s.acc.Bytes()[idx:])
	switch {
	case errors.Is(err, codec.ErrIncompleteHeader):
		s.state = StateHeaderWait
		return PollWaiting
	case err != nil:
		s.log.Debug("unparseable frame header dropped", "error", err)
		return s.abandon()
	}

	payloadStart := idx + payloadOff
	buffered := s.acc.Len() - payloadStart
	roomFor := s.acc.Cap() - payloadStart

	if hdr.Length > roomFor {
		// The frame can never fit. Pull the surplus off the wire so it
		// does not corrupt later scanning, then work with the prefix.
		s.state = StateDiscarding
		surplus := hdr.Length - buffered
		if got := s.dev.DiscardInput(surplus, s.cfg.DiscardTimeout); got < surplus {
			s.log.Warn("oversized frame surplus only partly discarded",
				"conn", hdr.Conn, "declared", hdr.Length, "missing", surplus-got)
		}
	} else if buffered < hdr.Length {
		s.state = StatePayloadWait
		return PollWaiting
	}

	s.state = StateReady
	payload := s.acc.Bytes()[payloadStart:]
	if len(payload) > hdr.Length {
		payload = payload[:hdr.Length]
	}
	return s.dispatch(hdr, payload)
}

// dispatch records the connection, parses the request line and hands it
// to the matching handler or the built-in 404 responder. The cycle ends
// here either way: the accumulator is cleared, dropping any pipelined
// residue behind this frame.
func (s *Server) dispatch(hdr codec.IPDHeader, payload []byte) PollResult {
	defer func() {
		s.acc.Reset()
		s.state = StateIdle
		s.frameStart = time.Time{}
	}()

	conn := conntrack.ConnID(hdr.Conn)
	if err := s.conns.Touch(conn, hdr.PeerIP, hdr.PeerPort); err != nil {
		s.log.Warn("frame for untrackable connection dropped", "conn", hdr.Conn, "error", err)
		s.stats.dropped++
		return PollDropped
	}

	req, err := codec.ParseRequest(payload)
	if err != nil {
		s.log.Debug("unparseable request dropped", "conn", hdr.Conn, "error", err)
		s.stats.dropped++
		return PollDropped
	}

	s.stats.requests++
	s.frameStart = s.clk.Now()

	h := s.findRoute(req.Path)
	if h == nil {
		s.log.Debug("no route", "method", req.Method, "path", req.Path, "conn", hdr.Conn)
		s.respondNotFound(conn)
		return PollDispatched
	}

	s.log.Debug("dispatching request",
		"method", req.Method, "path", req.Path, "conn", hdr.Conn)
	h.ServeRequest(conn, &req)
	return PollDispatched
}

// DefaultSweepInterval is how often Run checks for idle connections.
const DefaultSweepInterval = time.Second

// Run polls until ctx is done, yielding when nothing arrives and
// sweeping idle connections every sweepEvery. The context stops the
// loop between cycles; it does not cut short a wait in progress.
func (s *Server) Run(ctx context.Context, sweepEvery time.Duration) error {
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepInterval
	}
	lastSweep := s.clk.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch s.Poll() {
		case PollIdle, PollWaiting:
			s.clk.Sleep(s.cfg.Yield)
		}

		if s.clk.Since(lastSweep) >= sweepEvery {
			s.conns.Sweep()
			lastSweep = s.clk.Now()
		}
	}
}

// abandon clears the accumulator and counts the lost frame.
func (s *Server) abandon() PollResult {
	s.acc.Reset()
	s.state = StateIdle
	s.stats.dropped++
	return PollDropped
}
