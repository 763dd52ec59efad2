package httpd

import (
	"errors"
	"fmt"

	"github.com/quirell/espweb/core/codec"
	"github.com/quirell/espweb/device/conntrack"
)

// ErrStatusRange reports a status code outside 100..599.
var ErrStatusRange = errors.New("status code out of range")

const notFoundPage = "<html><body><h1>404 Not Found</h1></body></html>"

// Respond composes a complete response and pushes it through the
// firmware's send handshake: announce the length, wait for the prompt,
// write the block, wait for the send acknowledgement. The returned
// error is whatever that final wait produced.
//
// An oversized response fails closed before any handshake traffic.
// Counters and latency are updated for every call that passes
// validation, whatever the handshake's fate, so a stuck link cannot
// hide behind pretty statistics.
func (s *Server) Respond(conn conntrack.ConnID, status int, contentType string, body []byte) error {
	if conn < 0 {
		return conntrack.ErrConnRange
	}
	if status < 100 || status >= 600 {
		return ErrStatusRange
	}

	defer func() {
		s.stats.responses++
		if status < 400 {
			s.stats.succeeded++
		} else {
			s.stats.failed++
		}
		if !s.frameStart.IsZero() {
			s.stats.totalLatency += s.clk.Since(s.frameStart)
		}
	}()

	block, err := codec.AppendResponse(s.respBuf[:0], status, contentType, body)
	if err != nil {
		return fmt.Errorf("composing response for conn %d: %w", int(conn), err)
	}

	if err := s.dev.ExecAwait(s.sendAcc, codec.TokenPrompt, s.cfg.SendTimeout,
		"+CIPSEND=", int(conn), len(block)); err != nil {
		s.stats.sendErrors++
		return fmt.Errorf("send announce on conn %d: %w", int(conn), err)
	}
	if _, err := s.dev.WriteRaw(block); err != nil {
		s.stats.sendErrors++
		return fmt.Errorf("writing response on conn %d: %w", int(conn), err)
	}
	if err := s.dev.Await(s.sendAcc, codec.TokenSendOK, s.cfg.SendTimeout); err != nil {
		s.stats.sendErrors++
		return fmt.Errorf("send acknowledgement on conn %d: %w", int(conn), err)
	}
	return nil
}

// respondNotFound answers an unrouted request. Failures only get
// logged; the frame cycle is over either way.
func (s *Server) respondNotFound(conn conntrack.ConnID) {
	if err := s.Respond(conn, 404, "text/html", []byte(notFoundPage)); err != nil {
		s.log.Debug("404 response failed", "conn", int(conn), "error", err)
	}
}
