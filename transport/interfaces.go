// Package transport defines the byte-level boundary between the driver
// and whatever physical link carries the modem's serial stream.
package transport

import (
	"context"

	"github.com/quirell/espweb/core/rxring"
)

// Transport moves raw bytes between the driver and the modem. Received
// bytes are pushed into the ring handed to Start, standing in for the
// DMA engine that fills the receive buffer on real hardware; the driver
// never sees read callbacks, it drains the ring when it polls.
type Transport interface {
	// Start opens the link and begins pumping received bytes into sink.
	// The context controls the pump's lifetime.
	Start(ctx context.Context, sink *rxring.Ring) error
	// Stop closes the link and waits for the pump to wind down.
	Stop() error
	// Write transmits p over the link.
	Write(p []byte) (int, error)
	// Connected reports whether the link is currently usable.
	Connected() bool
}
