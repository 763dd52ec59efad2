// Package rxring provides the driver's circular receive buffer.
//
// The ring models a DMA-style receive channel: an independent producer (the
// transport's RX pump) deposits bytes at a write position while the single
// driver task drains from a read cursor. Unread length is always
// (write − read) mod capacity, and the producer never fills the last byte, so
// write == read unambiguously means empty and the buffer keeps one byte of
// slack at all times.
//
// Exactly one producer goroutine and exactly one consumer goroutine may use a
// Ring; with that discipline the ring is lock-free. Positions are published
// with atomics so each side observes the other's progress. The ring is never
// reset after construction.
package rxring

import "sync/atomic"

// DefaultCapacity matches the UART DMA buffer size the driver was tuned for.
const DefaultCapacity = 2048

// Ring is a fixed-capacity single-producer single-consumer byte ring.
// The capacity does not need to be a power of two.
type Ring struct {
	buf      []byte
	wpos     atomic.Uint32 // producer write position, 0..len(buf)-1
	rpos     atomic.Uint32 // consumer read cursor, 0..len(buf)-1
	overruns atomic.Uint64 // producer bytes dropped because the ring was full
}

// New creates a ring with the given capacity. Capacities below 2 fall back to
// DefaultCapacity.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Capacity returns the size of the backing buffer. At most Capacity()−1 bytes
// can be unread at once.
func (r *Ring) Capacity() int { return len(r.buf) }

// Unread returns the number of bytes deposited by the producer and not yet
// drained.
func (r *Ring) Unread() int {
	w := int(r.wpos.Load())
	rd := int(r.rpos.Load())
	return (w - rd + len(r.buf)) % len(r.buf)
}

// WritePos returns the producer's current write position. Diagnostic only.
func (r *Ring) WritePos() int { return int(r.wpos.Load()) }

// Overruns returns the cumulative number of producer bytes dropped because
// the consumer had not freed space in time.
func (r *Ring) Overruns() uint64 { return r.overruns.Load() }

// Put deposits p at the write position, wrapping as needed, and returns the
// number of bytes accepted. Bytes that do not fit are dropped and counted as
// overruns; the producer never overwrites unread data and never fills the
// slack byte. Producer side only.
func (r *Ring) Put(p []byte) int {
	w := int(r.wpos.Load())
	rd := int(r.rpos.Load())
	free := len(r.buf) - 1 - (w-rd+len(r.buf))%len(r.buf)

	n := len(p)
	if n > free {
		n = free
	}
	if n > 0 {
		first := len(r.buf) - w
		if first > n {
			first = n
		}
		copy(r.buf[w:], p[:first])
		copy(r.buf, p[first:n])
		r.wpos.Store(uint32((w + n) % len(r.buf)))
	}
	if dropped := len(p) - n; dropped > 0 {
		r.overruns.Add(uint64(dropped))
	}
	return n
}

// Drain copies up to len(dst) unread bytes into dst, performing a wraparound
// split copy when the unread region crosses the end of the buffer, advances
// the read cursor, and returns the number of bytes copied. It never blocks and
// never re-delivers a byte. A zero-length dst leaves the ring untouched.
// Consumer side only.
func (r *Ring) Drain(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	w := int(r.wpos.Load())
	rd := int(r.rpos.Load())
	unread := (w - rd + len(r.buf)) % len(r.buf)

	n := unread
	if n > len(dst) {
		n = len(dst)
	}
	if n == 0 {
		return 0
	}
	first := len(r.buf) - rd
	if first > n {
		first = n
	}
	copy(dst, r.buf[rd:rd+first])
	copy(dst[first:], r.buf[:n-first])
	r.rpos.Store(uint32((rd + n) % len(r.buf)))
	return n
}

// Discard advances the read cursor past up to n unread bytes without copying
// them and returns the number discarded. Consumer side only.
func (r *Ring) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	w := int(r.wpos.Load())
	rd := int(r.rpos.Load())
	unread := (w - rd + len(r.buf)) % len(r.buf)
	if n > unread {
		n = unread
	}
	if n > 0 {
		r.rpos.Store(uint32((rd + n) % len(r.buf)))
	}
	return n
}
