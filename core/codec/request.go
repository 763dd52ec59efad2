package codec

import (
	"bytes"
	"errors"
)

// Field bounds for the request line. Routing only ever needs the request
// line, so anything larger than these is hostile or garbage.
const (
	MaxMethodLen = 8
	MaxPathLen   = 128
	MaxQueryLen  = 128
)

var (
	// ErrNoRequestLine means no CRLF-terminated line was found.
	ErrNoRequestLine = errors.New("no request line")
	// ErrBadRequestLine means the first line is not method-then-target.
	ErrBadRequestLine = errors.New("malformed request line")
	// ErrFieldTooLong means a request-line field exceeds its bound.
	ErrFieldTooLong = errors.New("request field too long")
)

// Request is the routed portion of an HTTP request: the request line
// split into method, path and raw query. Header fields and bodies are
// deliberately not parsed.
type Request struct {
	Method string
	Path   string
	Query  string
}

// ParseRequest extracts the request line from raw. The line must be
// CRLF-terminated within raw. Fields are copied out, so the result
// stays valid after the source buffer is reused.
func ParseRequest(raw []byte) (Request, error) {
	var req Request

	eol := bytes.Index(raw, []byte(CRLF))
	if eol < 0 {
		return req, ErrNoRequestLine
	}
	line := raw[:eol]

	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return req, ErrBadRequestLine
	}
	if sp > MaxMethodLen {
		return req, ErrFieldTooLong
	}
	method := line[:sp]
	rest := line[sp+1:]

	pathEnd := len(rest)
	for i, c := range rest {
		if c == ' ' || c == '?' {
			pathEnd = i
			break
		}
	}
	if pathEnd == 0 {
		return req, ErrBadRequestLine
	}
	if pathEnd > MaxPathLen {
		return req, ErrFieldTooLong
	}
	path := rest[:pathEnd]

	var query []byte
	if pathEnd < len(rest) && rest[pathEnd] == '?' {
		query = rest[pathEnd+1:]
		if i := bytes.IndexByte(query, ' '); i >= 0 {
			query = query[:i]
		}
		if len(query) > MaxQueryLen {
			return req, ErrFieldTooLong
		}
	}

	req.Method = string(method)
	req.Path = string(path)
	req.Query = string(query)
	return req, nil
}
