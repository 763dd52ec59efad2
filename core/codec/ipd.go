package codec

import (
	"bytes"
	"errors"
)

const (
	// MaxIPDHeaderLen bounds the header scan. The longest legitimate
	// header is the long form with a dotted-quad peer and five-digit
	// port, which fits well inside this.
	MaxIPDHeaderLen = 48

	maxConnDigits = 4
	maxLenDigits  = 7
	maxPortDigits = 5
	maxPeerIPLen  = 15
)

var (
	// ErrIncompleteHeader means the bytes so far are a valid header
	// prefix; retry once more input arrives.
	ErrIncompleteHeader = errors.New("incomplete data header")
	// ErrBadHeader means the bytes can never become a valid header;
	// the frame is unrecoverable.
	ErrBadHeader = errors.New("malformed data header")
)

// IPDHeader is a parsed inbound-data announcement.
type IPDHeader struct {
	Conn   int
	Length int
	// PeerIP and PeerPort are populated only for the long header form.
	PeerIP   string
	PeerPort int
}

// HasPeer reports whether the header carried peer address info.
func (h IPDHeader) HasPeer() bool { return h.PeerIP != "" }

// FindMarker returns the offset of the first inbound-data marker in b,
// or -1 when none is present.
func FindMarker(b []byte) int {
	return bytes.Index(b, []byte(IPDMarker))
}

// ParseIPDHeader parses an inbound-data header at the start of b, which
// must begin with the marker. It accepts the long form
// +IPD,<id>,<len>,"<ip>",<port>: and falls back to the short form
// +IPD,<id>,<len>: and returns the header plus the offset of the first
// payload byte. ErrIncompleteHeader asks the caller to retry with more
// bytes; ErrBadHeader condemns the frame.
func ParseIPDHeader(b []byte) (IPDHeader, int, error) {
	var hdr IPDHeader

	if len(b) > MaxIPDHeaderLen {
		b = b[:MaxIPDHeaderLen]
	} else if len(b) < len(IPDMarker) {
		return hdr, 0, ErrIncompleteHeader
	}
	if !bytes.HasPrefix(b, []byte(IPDMarker)) {
		return hdr, 0, ErrBadHeader
	}
	pos := len(IPDMarker)

	conn, pos, err := parseDigits(b, pos, maxConnDigits)
	if err != nil {
		return hdr, 0, err
	}
	if err := expect(b, pos, ','); err != nil {
		return hdr, 0, err
	}
	pos++

	length, pos, err := parseDigits(b, pos, maxLenDigits)
	if err != nil {
		return hdr, 0, err
	}
	if length == 0 {
		return hdr, 0, ErrBadHeader
	}

	if pos >= len(b) {
		return hdr, 0, incompleteOrBad(b)
	}
	switch b[pos] {
	case ':':
		hdr.Conn, hdr.Length = conn, length
		return hdr, pos + 1, nil
	case ',':
		pos++
	default:
		return hdr, 0, ErrBadHeader
	}

	ip, pos, err := parseQuoted(b, pos)
	if err != nil {
		return hdr, 0, err
	}
	if err := expect(b, pos, ','); err != nil {
		return hdr, 0, err
	}
	pos++

	port, pos, err := parseDigits(b, pos, maxPortDigits)
	if err != nil {
		return hdr, 0, err
	}
	if err := expect(b, pos, ':'); err != nil {
		return hdr, 0, err
	}

	hdr.Conn, hdr.Length = conn, length
	hdr.PeerIP, hdr.PeerPort = ip, port
	return hdr, pos + 1, nil
}

// incompleteOrBad maps run-out-of-bytes to a retry unless the scan
// window is already exhausted, in which case no further input can help.
func incompleteOrBad(b []byte) error {
	if len(b) >= MaxIPDHeaderLen {
		return ErrBadHeader
	}
	return ErrIncompleteHeader
}

func expect(b []byte, pos int, c byte) error {
	if pos >= len(b) {
		return incompleteOrBad(b)
	}
	if b[pos] != c {
		return ErrBadHeader
	}
	return nil
}

func parseDigits(b []byte, pos, maxDigits int) (int, int, error) {
	v, n := 0, 0
	for pos < len(b) && b[pos] >= '0' && b[pos] <= '9' {
		if n == maxDigits {
			return 0, 0, ErrBadHeader
		}
		v = v*10 + int(b[pos]-'0')
		n++
		pos++
	}
	if n == 0 {
		if pos >= len(b) {
			return 0, 0, incompleteOrBad(b)
		}
		return 0, 0, ErrBadHeader
	}
	if pos >= len(b) {
		// Cannot tell yet whether more digits follow.
		return 0, 0, incompleteOrBad(b)
	}
	return v, pos, nil
}

func parseQuoted(b []byte, pos int) (string, int, error) {
	if err := expect(b, pos, '"'); err != nil {
		return "", 0, err
	}
	pos++
	start := pos
	for pos < len(b) && b[pos] != '"' {
		if pos-start == maxPeerIPLen {
			return "", 0, ErrBadHeader
		}
		pos++
	}
	if pos >= len(b) {
		return "", 0, incompleteOrBad(b)
	}
	return string(b[start:pos]), pos + 1, nil
}
