package modem

import (
	"bytes"
	"errors"
	"time"

	"github.com/quirell/espweb/core/codec"
)

// Wait budgets for the command helpers. Joining an access point and a
// firmware reset are the slow outliers; everything else answers within
// the short budget.
const (
	DefaultCommandTimeout = 2 * time.Second
	DefaultResetTimeout   = 10 * time.Second
	DefaultJoinTimeout    = 20 * time.Second
)

// ErrBadReply reports a response that arrived but did not carry the
// field being extracted.
var ErrBadReply = errors.New("unexpected reply format")

// Ping checks the command channel with a bare AT.
func (d *Device) Ping() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "")
}

// Reset restarts the firmware and waits for its boot banner.
func (d *Device) Reset() error {
	return d.ExecAwait(d.resp, codec.TokenReady, DefaultResetTimeout, "+RST")
}

// EchoOff stops the modem echoing command lines back, which would
// otherwise pollute response scanning.
func (d *Device) EchoOff() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "E0")
}

// EnableSysLog turns on the firmware's error report log.
func (d *Device) EnableSysLog() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+SYSLOG=", 1)
}

// Version returns the firmware's version banner.
func (d *Device) Version() (string, error) {
	if err := d.Exec(d.resp, DefaultCommandTimeout, "+GMR"); err != nil {
		return "", err
	}
	banner := d.resp.Bytes()
	if i := d.resp.Index(codec.TokenOK); i >= 0 {
		banner = banner[:i]
	}
	return string(bytes.TrimSpace(banner)), nil
}

// SetSleep selects the modem sleep mode (0 disabled, 1 light, 2 modem).
func (d *Device) SetSleep(mode int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+SLEEP=", mode)
}

// DeepSleep puts the modem into deep sleep for the given duration. The
// modem drops off the link until it wakes and reboots.
func (d *Device) DeepSleep(ms int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+GSLP=", ms)
}

// SetRFPower sets the TX power in steps of 0.25 dBm.
func (d *Device) SetRFPower(quarterDBm int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+RFPOWER=", quarterDBm)
}

// SetBaud reconfigures the modem UART for the current session (8N1, no
// flow control). The caller must reopen its own side to match.
func (d *Device) SetBaud(rate int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+UART_CUR=", rate, 8, 1, 0, 0)
}

// SetStationMode puts the radio in station (client) mode.
func (d *Device) SetStationMode() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+CWMODE=", 1)
}

// JoinAP associates with an access point. Association regularly takes
// several seconds, hence the long budget.
func (d *Device) JoinAP(ssid, password string) error {
	return d.Exec(d.resp, DefaultJoinTimeout, "+CWJAP=", ssid, password)
}

// stationIPTag prefixes the station address line in a CIFSR reply.
var stationIPTag = []byte(`+CIFSR:STAIP,"`)

// StationIP queries the address the access point assigned us.
func (d *Device) StationIP() (string, error) {
	if err := d.Exec(d.resp, DefaultCommandTimeout, "+CIFSR"); err != nil {
		return "", err
	}
	reply := d.resp.Bytes()
	i := bytes.Index(reply, stationIPTag)
	if i < 0 {
		return "", ErrBadReply
	}
	rest := reply[i+len(stationIPTag):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return "", ErrBadReply
	}
	return string(rest[:end]), nil
}

// EnableMux switches the modem to multiplexed connection handling,
// required before a server can be started.
func (d *Device) EnableMux() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+CIPMUX=", 1)
}

// StartServer starts the modem's TCP listener on port.
func (d *Device) StartServer(port int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+CIPSERVER=1,", port)
}

// StopServer shuts the TCP listener down.
func (d *Device) StopServer() error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+CIPSERVER=", 0)
}

// CloseConn closes one multiplexed connection on the modem.
func (d *Device) CloseConn(id int) error {
	return d.Exec(d.resp, DefaultCommandTimeout, "+CIPCLOSE=", id)
}
