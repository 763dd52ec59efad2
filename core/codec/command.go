package codec

import "errors"

var (
	// ErrArgType reports a command argument of an unsupported type.
	ErrArgType = errors.New("unsupported argument type")
	// ErrBufferOverflow reports a compose that does not fit its buffer.
	ErrBufferOverflow = errors.New("buffer overflow")
)

// AppendCommand formats an AT command line into dst's spare capacity and
// returns the extended slice. The name carries any '=' separator, so
// AppendCommand(dst, "+CIPMUX=", 1) yields "AT+CIPMUX=1\r\n". Arguments
// are comma-joined: strings are double-quoted with '"' and '\' escaped,
// ints are written in decimal, and a nil leaves its slot empty. On
// ErrArgType or ErrBufferOverflow dst is returned unmodified and nothing
// must be transmitted.
func AppendCommand(dst []byte, name string, args ...any) ([]byte, error) {
	base := len(dst)
	buf := dst

	fits := func(n int) bool { return len(buf)+n <= cap(buf) }
	overflow := func() ([]byte, error) { return dst[:base], ErrBufferOverflow }

	if !fits(2 + len(name)) {
		return overflow()
	}
	buf = append(buf, 'A', 'T')
	buf = append(buf, name...)

	for i, arg := range args {
		if i > 0 {
			if !fits(1) {
				return overflow()
			}
			buf = append(buf, ',')
		}
		switch a := arg.(type) {
		case string:
			if !fits(2 + len(a)) {
				return overflow()
			}
			buf = append(buf, '"')
			for k := 0; k < len(a); k++ {
				c := a[k]
				if c == '"' || c == '\\' {
					if !fits(2) {
						return overflow()
					}
					buf = append(buf, '\\')
				} else if !fits(1) {
					return overflow()
				}
				buf = append(buf, c)
			}
			if !fits(1) {
				return overflow()
			}
			buf = append(buf, '"')
		case int:
			if a < 0 {
				if !fits(1) {
					return overflow()
				}
				buf = append(buf, '-')
				a = -a
			}
			start := len(buf)
			for {
				if !fits(1) {
					return overflow()
				}
				buf = append(buf, byte(a%10)+'0')
				a /= 10
				if a == 0 {
					break
				}
			}
			for f, l := start, len(buf)-1; f < l; f, l = f+1, l-1 {
				buf[f], buf[l] = buf[l], buf[f]
			}
		default:
			if arg != nil {
				return dst[:base], ErrArgType
			}
		}
	}

	if !fits(2) {
		return overflow()
	}
	return append(buf, '\r', '\n'), nil
}
