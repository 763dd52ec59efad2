// Package buffer provides the bounded accumulator that modem response
// scanning and frame reassembly collect drained serial bytes into.
//
// An Accumulator never grows and never blocks. One byte of the backing
// array is kept in reserve, so usable length is capacity-1; Append copies
// what fits and silently drops the rest. What happens on overflow is the
// caller's policy: the response synchronizer keeps the truncated prefix
// and keeps scanning, while the frame reassembler throws the whole
// accumulator away and abandons the frame.
package buffer

import "bytes"

// DefaultCapacity suits AT response lines and small HTTP request heads.
const DefaultCapacity = 512

// Accumulator is a fixed-capacity append-only byte collector.
type Accumulator struct {
	buf []byte
	n   int
}

// New returns an accumulator with the given backing capacity. Capacities
// below 2 fall back to DefaultCapacity.
func New(capacity int) *Accumulator {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Accumulator{buf: make([]byte, capacity)}
}

// Append copies as much of p as fits and reports how many bytes it took.
// The surplus is dropped, not queued.
func (a *Accumulator) Append(p []byte) int {
	free := a.Free()
	if len(p) > free {
		p = p[:free]
	}
	copy(a.buf[a.n:], p)
	a.n += len(p)
	return len(p)
}

// Bytes returns the accumulated content. The slice aliases the backing
// array and is valid until the next Append or Reset.
func (a *Accumulator) Bytes() []byte { return a.buf[:a.n] }

// Len reports the accumulated byte count.
func (a *Accumulator) Len() int { return a.n }

// Cap reports the usable capacity (one byte below the backing size).
func (a *Accumulator) Cap() int { return len(a.buf) - 1 }

// Free reports how many more bytes Append can take.
func (a *Accumulator) Free() int { return a.Cap() - a.n }

// Full reports whether Append can take no more bytes.
func (a *Accumulator) Full() bool { return a.Free() == 0 }

// Reset empties the accumulator. The backing array is retained.
func (a *Accumulator) Reset() { a.n = 0 }

// Contains reports whether the accumulated content holds pat.
func (a *Accumulator) Contains(pat string) bool {
	return bytes.Contains(a.Bytes(), []byte(pat))
}

// Index returns the offset of the first occurrence of pat, or -1.
func (a *Accumulator) Index(pat string) int {
	return bytes.Index(a.Bytes(), []byte(pat))
}
