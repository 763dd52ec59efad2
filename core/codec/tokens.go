// Package codec implements the textual wire formats spoken across the
// modem serial link: AT command lines, the response tokens the firmware
// terminates them with, the +IPD inbound-data framing, and the minimal
// HTTP request/response grammar carried inside those frames.
//
// Everything here is allocation-shy and bounds-checked. Parsers read
// from accumulator snapshots and composers write into fixed buffers,
// failing closed rather than growing.
package codec

// Response tokens emitted by the modem firmware. Matching is plain
// substring search over accumulated bytes, so each token includes the
// trailing CRLF where the firmware sends one.
const (
	CRLF = "\r\n"

	// TokenOK terminates a successful command response.
	TokenOK = "OK\r\n"
	// TokenError terminates a rejected command response.
	TokenError = "ERROR\r\n"
	// TokenSendOK acknowledges a completed length-prefixed send.
	TokenSendOK = "SEND OK\r\n"
	// TokenSendFail reports an aborted length-prefixed send.
	TokenSendFail = "SEND FAIL\r\n"
	// TokenReady is printed once after reset when the firmware is up.
	TokenReady = "ready\r\n"
	// TokenBusy is printed while a prior command is still running.
	TokenBusy = "busy p..."

	// TokenPrompt is the go-ahead for raw payload bytes after a send
	// announce. The firmware sends it without a line terminator.
	TokenPrompt = ">"

	// IPDMarker introduces an inbound data frame.
	IPDMarker = "+IPD,"
)
