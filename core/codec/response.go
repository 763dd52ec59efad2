package codec

// reasonTable is a sparse flat list instead of a map; the code set is
// small and fixed.
var reasonTable = [600]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Payload Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// StatusText returns the reason phrase for a status code, or "Unknown"
// for codes outside the table.
func StatusText(code int) string {
	if code >= 0 && code < len(reasonTable) && reasonTable[code] != "" {
		return reasonTable[code]
	}
	return "Unknown"
}

// AppendResponse composes a complete close-delimited HTTP response into
// dst's spare capacity and returns the extended slice: status line,
// Content-Type, Content-Length, Connection: close, blank line, body.
// If the whole response does not fit, dst is returned unmodified with
// ErrBufferOverflow and nothing must be transmitted.
func AppendResponse(dst []byte, status int, contentType string, body []byte) ([]byte, error) {
	base := len(dst)
	buf := dst

	put := func(parts ...string) bool {
		for _, s := range parts {
			if len(buf)+len(s) > cap(buf) {
				return false
			}
			buf = append(buf, s...)
		}
		return true
	}

	ok := put("HTTP/1.1 ") && putInt(&buf, status) && put(" ", StatusText(status), CRLF) &&
		put("Content-Type: ", contentType, CRLF) &&
		put("Content-Length: ") && putInt(&buf, len(body)) && put(CRLF) &&
		put("Connection: close", CRLF, CRLF)
	if !ok || len(buf)+len(body) > cap(buf) {
		return dst[:base], ErrBufferOverflow
	}
	return append(buf, body...), nil
}

func putInt(buf *[]byte, n int) bool {
	var tmp [20]byte
	i := len(tmp)
	if n == 0 {
		i--
		tmp[i] = '0'
	}
	for n > 0 {
		i--
		tmp[i] = byte(n%10) + '0'
		n /= 10
	}
	if len(*buf)+len(tmp[i:]) > cap(*buf) {
		return false
	}
	*buf = append(*buf, tmp[i:]...)
	return true
}
