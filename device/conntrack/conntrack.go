// Package conntrack tracks the modem's multiplexed TCP links.
//
// The Table records when each connection id last carried traffic and
// which peer the modem reported for it. Sweep deactivates entries idle
// past the configured timeout and fires an eviction callback, which the
// server wires to the modem's close command so the firmware's link slot
// is actually released.
//
// A Table is owned by the single polling task. It holds no locks, so it
// must not be shared with other goroutines; the cooperative design
// depends on exclusive ownership rather than synchronization.
package conntrack

import (
	"errors"
	"log/slog"
	"time"

	"github.com/quirell/espweb/core/clock"
)

const (
	// DefaultCapacity matches the firmware's five multiplexed links
	// (connection ids 0 through 4).
	DefaultCapacity = 5

	// DefaultIdleTimeout is how long a connection may stay silent
	// before Sweep evicts it.
	DefaultIdleTimeout = 30 * time.Second
)

// ErrConnRange reports a connection id at or beyond the table capacity.
var ErrConnRange = errors.New("connection id out of range")

// ConnID is a handle into the table, carrying the modem's link number.
// All bounds checking happens inside the Table, so holders of a ConnID
// never index anything themselves.
type ConnID int

type entry struct {
	active   bool
	lastSeen time.Time
	peerIP   string
	peerPort int
}

// Config configures a Table.
type Config struct {
	// Capacity fixes the number of tracked connection ids.
	// Default: DefaultCapacity.
	Capacity int

	// IdleTimeout is the inactivity threshold Sweep evicts at.
	// Default: DefaultIdleTimeout.
	IdleTimeout time.Duration

	// OnEvict is invoked with each connection id Sweep deactivates.
	// Optional.
	OnEvict func(id ConnID)

	// Clock supplies time; defaults to the wall clock.
	Clock *clock.Clock

	// Logger for eviction events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
}

// Table is a fixed-capacity activity tracker indexed by connection id.
type Table struct {
	cfg       Config
	log       *slog.Logger
	clk       *clock.Clock
	conns     []entry
	highWater int
}

// New creates a connection table with the given configuration.
func New(cfg Config) *Table {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		cfg:   cfg,
		log:   logger.WithGroup("conntrack"),
		clk:   clk,
		conns: make([]entry, cfg.Capacity),
	}
}

// Capacity returns the fixed table size.
func (t *Table) Capacity() int { return len(t.conns) }

// Touch marks id active and refreshes its activity timestamp. Peer info
// is recorded when given; an empty ip keeps whatever was known before.
// An id outside the table is rejected without mutating state.
func (t *Table) Touch(id ConnID, peerIP string, peerPort int) error {
	if id < 0 || int(id) >= len(t.conns) {
		return ErrConnRange
	}
	e := &t.conns[id]
	e.active = true
	e.lastSeen = t.clk.Now()
	if peerIP != "" {
		e.peerIP = peerIP
		e.peerPort = peerPort
	}
	if int(id)+1 > t.highWater {
		t.highWater = int(id) + 1
	}
	return nil
}

// Deactivate clears a single entry without firing OnEvict. Used for
// graceful closes initiated by this side.
func (t *Table) Deactivate(id ConnID) {
	if id < 0 || int(id) >= len(t.conns) {
		return
	}
	t.conns[id] = entry{}
}

// Sweep deactivates every connection idle past the configured timeout,
// clears its peer fields, and fires OnEvict for each. It returns the
// evicted ids.
func (t *Table) Sweep() []ConnID {
	now := t.clk.Now()

	var evicted []ConnID
	for i := range t.conns {
		e := &t.conns[i]
		if e.active && now.Sub(e.lastSeen) > t.cfg.IdleTimeout {
			evicted = append(evicted, ConnID(i))
			*e = entry{}
		}
	}

	for _, id := range evicted {
		t.log.Debug("connection timed out", "conn", int(id))
		if t.cfg.OnEvict != nil {
			t.cfg.OnEvict(id)
		}
	}
	return evicted
}

// IsActive reports whether id is in range and currently active.
func (t *Table) IsActive(id ConnID) bool {
	return id >= 0 && int(id) < len(t.conns) && t.conns[id].active
}

// ActiveCount returns the number of currently active connections.
func (t *Table) ActiveCount() int {
	n := 0
	for i := range t.conns {
		if t.conns[i].active {
			n++
		}
	}
	return n
}

// HighWater returns one past the largest connection id ever touched.
func (t *Table) HighWater() int { return t.highWater }

// PeerAddr returns the recorded peer address for an active connection.
// Out-of-range or inactive ids yield ok=false.
func (t *Table) PeerAddr(id ConnID) (ip string, port int, ok bool) {
	if !t.IsActive(id) {
		return "", 0, false
	}
	return t.conns[id].peerIP, t.conns[id].peerPort, true
}
