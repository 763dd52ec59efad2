// Package serial provides the UART transport to a modem attached on a
// serial port.
//
// A background read loop pushes every received byte straight into the
// receive ring, mirroring how DMA fills the circular buffer on real
// hardware. Bytes that arrive while the ring is full are dropped and
// counted by the ring, not buffered here.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"

	"github.com/quirell/espweb/core/rxring"
	"github.com/quirell/espweb/transport"
)

// Compile-time interface check.
var _ transport.Transport = (*Transport)(nil)

const (
	// DefaultBaudRate matches the modem firmware's factory UART setup.
	DefaultBaudRate = 115200

	// readBufSize is the size of the serial read buffer.
	readBufSize = 256
)

// Config holds the configuration for a serial transport.
type Config struct {
	// Port is the serial port path (e.g., "/dev/ttyUSB0" or "COM3").
	Port string
	// BaudRate is the serial baud rate. Defaults to 115200.
	BaudRate int
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Transport implements transport.Transport over a serial port.
type Transport struct {
	cfg       Config
	log       *slog.Logger
	mu        sync.RWMutex
	port      serial.Port
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a serial transport with the given configuration.
func New(cfg Config) *Transport {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Transport{
		cfg: cfg,
		log: cfg.Logger.WithGroup("serial"),
	}
}

// Start opens the serial port and begins pumping bytes into sink.
func (t *Transport) Start(ctx context.Context, sink *rxring.Ring) error {
	if t.cfg.Port == "" {
		return errors.New("serial port is required")
	}
	if sink == nil {
		return errors.New("receive ring is required")
	}

	mode := &serial.Mode{
		BaudRate: t.cfg.BaudRate,
	}

	port, err := serial.Open(t.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("opening serial port: %w", err)
	}

	readCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.port = port
	t.connected = true
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.readLoop(readCtx, port, sink)

	t.log.Info("connected to serial port", "port", t.cfg.Port, "baud", t.cfg.BaudRate)
	return nil
}

// Stop closes the serial port and waits for the read loop to finish.
func (t *Transport) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	port := t.port
	done := t.done
	t.connected = false
	t.port = nil
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if port != nil {
		// Closing the port unblocks a read in progress.
		err = port.Close()
	}
	if done != nil {
		<-done
	}
	return err
}

// Connected reports whether the serial port is open.
func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Write transmits p on the serial port.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.RLock()
	port := t.port
	connected := t.connected
	t.mu.RUnlock()

	if !connected || port == nil {
		return 0, errors.New("not connected")
	}

	n, err := port.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing to serial port: %w", err)
	}
	return n, nil
}

// readLoop pumps the serial port into the ring until the port closes or
// the context is cancelled.
func (t *Transport) readLoop(ctx context.Context, port serial.Port, sink *rxring.Ring) {
	defer close(t.done)

	buf := make([]byte, readBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return // clean shutdown
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				t.handleDisconnect(err)
				return
			}
			t.log.Error("serial read error", "error", err)
			t.handleDisconnect(err)
			return
		}
		if n == 0 {
			continue
		}

		if put := sink.Put(buf[:n]); put < n {
			t.log.Warn("receive ring full, bytes dropped",
				"dropped", n-put, "overruns", sink.Overruns())
		}
	}
}

func (t *Transport) handleDisconnect(err error) {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()

	if err != nil {
		t.log.Error("serial disconnected", "error", err)
	}
}
