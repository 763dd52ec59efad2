package modem

import (
	"errors"
	"testing"
)

func TestCommandWireFormats(t *testing.T) {
	tests := []struct {
		name  string
		call  func(d *Device) error
		wire  string
		reply string
	}{
		{
			name:  "ping",
			call:  (*Device).Ping,
			wire:  "AT\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "echo off",
			call:  (*Device).EchoOff,
			wire:  "ATE0\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "reset waits for banner",
			call:  (*Device).Reset,
			wire:  "AT+RST\r\n",
			reply: "\r\nOK\r\n\r\nready\r\n",
		},
		{
			name:  "syslog",
			call:  (*Device).EnableSysLog,
			wire:  "AT+SYSLOG=1\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "sleep mode",
			call:  func(d *Device) error { return d.SetSleep(2) },
			wire:  "AT+SLEEP=2\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "deep sleep",
			call:  func(d *Device) error { return d.DeepSleep(5000) },
			wire:  "AT+GSLP=5000\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "rf power",
			call:  func(d *Device) error { return d.SetRFPower(78) },
			wire:  "AT+RFPOWER=78\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "baud",
			call:  func(d *Device) error { return d.SetBaud(921600) },
			wire:  "AT+UART_CUR=921600,8,1,0,0\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "station mode",
			call:  (*Device).SetStationMode,
			wire:  "AT+CWMODE=1\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "join quotes credentials",
			call:  func(d *Device) error { return d.JoinAP("my net", `p"w`) },
			wire:  "AT+CWJAP=\"my net\",\"p\\\"w\"\r\n",
			reply: "\r\nWIFI CONNECTED\r\nWIFI GOT IP\r\n\r\nOK\r\n",
		},
		{
			name:  "enable mux",
			call:  (*Device).EnableMux,
			wire:  "AT+CIPMUX=1\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "start server",
			call:  func(d *Device) error { return d.StartServer(8080) },
			wire:  "AT+CIPSERVER=1,8080\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "stop server",
			call:  (*Device).StopServer,
			wire:  "AT+CIPSERVER=0\r\n",
			reply: "\r\nOK\r\n",
		},
		{
			name:  "close connection",
			call:  func(d *Device) error { return d.CloseConn(3) },
			wire:  "AT+CIPCLOSE=3\r\n",
			reply: "3,CLOSED\r\n\r\nOK\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fake := newTestDevice(t, Config{})
			fake.replies[tt.wire] = tt.reply

			if err := tt.call(d); err != nil {
				t.Fatalf("command = %v", err)
			}
			if len(fake.writes) != 1 || fake.writes[0] != tt.wire {
				t.Errorf("wire = %q, want %q", fake.writes, tt.wire)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	d, fake := newTestDevice(t, Config{})
	fake.replies["AT+GMR\r\n"] = "AT version:1.7.4.0\r\nSDK version:3.0.4\r\n\r\nOK\r\n"

	got, err := d.Version()
	if err != nil {
		t.Fatal(err)
	}
	want := "AT version:1.7.4.0\r\nSDK version:3.0.4"
	if got != want {
		t.Errorf("Version = %q, want %q", got, want)
	}
}

func TestStationIP(t *testing.T) {
	d, fake := newTestDevice(t, Config{})
	fake.replies["AT+CIFSR\r\n"] = "+CIFSR:STAIP,\"192.168.1.42\"\r\n+CIFSR:STAMAC,\"5c:cf:7f:01:02:03\"\r\n\r\nOK\r\n"

	got, err := d.StationIP()
	if err != nil {
		t.Fatal(err)
	}
	if got != "192.168.1.42" {
		t.Errorf("StationIP = %q, want %q", got, "192.168.1.42")
	}
}

func TestStationIP_MissingAddress(t *testing.T) {
	d, fake := newTestDevice(t, Config{})
	fake.replies["AT+CIFSR\r\n"] = "+CIFSR:STAMAC,\"5c:cf:7f:01:02:03\"\r\n\r\nOK\r\n"

	if _, err := d.StationIP(); !errors.Is(err, ErrBadReply) {
		t.Errorf("StationIP = %v, want ErrBadReply", err)
	}
}
