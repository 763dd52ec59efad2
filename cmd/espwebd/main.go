// Command espwebd serves a small web interface through an ESP8266-style
// WiFi modem attached to a serial port: it brings the modem up, joins an
// access point, opens the firmware's multiplexed TCP server and polls it
// for requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/quirell/espweb/core/codec"
	"github.com/quirell/espweb/device/conntrack"
	"github.com/quirell/espweb/device/httpd"
	"github.com/quirell/espweb/device/modem"
	"github.com/quirell/espweb/transport/serial"
)

type options struct {
	Port        string        `short:"p" long:"port" default:"/dev/ttyUSB0" description:"serial port of the WiFi modem"`
	Baud        int           `short:"b" long:"baud" default:"115200" description:"serial baud rate"`
	SSID        string        `long:"ssid" required:"true" description:"access point to join"`
	Password    string        `long:"password" description:"access point passphrase"`
	Listen      int           `short:"l" long:"listen" default:"80" description:"TCP port the modem listens on"`
	IdleTimeout time.Duration `long:"idle-timeout" default:"30s" description:"close connections idle longer than this"`
	LogLevel    string        `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"log verbosity"`
}

const indexPage = `<html><body><h1>espweb</h1>
<p>Served through an ESP8266 AT modem.</p>
<p><a href="/status">status</a> <a href="/version">version</a></p>
</body></html>`

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	logger := newLogger(opts.LogLevel)
	if err := run(opts, logger); err != nil {
		logger.Error("espwebd failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(opts options, logger *slog.Logger) error {
	tr := serial.New(serial.Config{
		Port:     opts.Port,
		BaudRate: opts.Baud,
		Logger:   logger,
	})
	dev := modem.New(modem.Config{
		Transport: tr,
		Logger:    logger,
	})

	// The transport outlives the signal context so shutdown commands can
	// still reach the modem after the poll loop stops.
	if err := dev.Start(context.Background()); err != nil {
		return fmt.Errorf("opening %s: %w", opts.Port, err)
	}
	defer dev.Stop()

	version, err := bringUp(dev, logger, opts)
	if err != nil {
		return err
	}

	conns := conntrack.New(conntrack.Config{
		IdleTimeout: opts.IdleTimeout,
		Logger:      logger,
		OnEvict: func(id conntrack.ConnID) {
			if err := dev.CloseConn(int(id)); err != nil {
				logger.Warn("closing idle connection", "conn", int(id), "error", err)
			}
		},
	})
	srv := httpd.New(httpd.Config{
		Device: dev,
		Conns:  conns,
		Logger: logger,
	})

	reply := func(conn conntrack.ConnID, status int, contentType string, body []byte) {
		if err := srv.Respond(conn, status, contentType, body); err != nil {
			logger.Warn("response failed", "conn", int(conn), "status", status, "error", err)
		}
	}

	srv.Register("/", httpd.HandlerFunc(func(conn conntrack.ConnID, _ *codec.Request) {
		reply(conn, 200, "text/html", []byte(indexPage))
	}))
	srv.Register("/version", httpd.HandlerFunc(func(conn conntrack.ConnID, _ *codec.Request) {
		reply(conn, 200, "text/plain", []byte(version+"\n"))
	}))
	srv.Register("/status", httpd.HandlerFunc(func(conn conntrack.ConnID, _ *codec.Request) {
		snap := srv.Stats()
		body := fmt.Sprintf(
			"requests: %d\nresponses: %d\nsucceeded: %d\nfailed: %d\ndropped: %d\nsend errors: %d\navg latency: %s\nactive connections: %d\nhigh water: %d\nring overruns: %d\n",
			snap.Requests, snap.Responses, snap.Succeeded, snap.Failed,
			snap.Dropped, snap.SendErrors, snap.AvgLatency,
			srv.Conns().ActiveCount(), srv.Conns().HighWater(),
			dev.Ring().Overruns(),
		)
		reply(conn, 200, "text/plain", []byte(body))
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, httpd.DefaultSweepInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutting down")
	if err := dev.StopServer(); err != nil {
		logger.Warn("stopping TCP server", "error", err)
	}
	return nil
}

// bringUp resets the modem and walks it to a listening TCP server.
// Returns the firmware version banner for the /version route.
func bringUp(dev *modem.Device, logger *slog.Logger, opts options) (string, error) {
	logger.Info("resetting modem", "port", opts.Port)
	if err := dev.Reset(); err != nil {
		return "", fmt.Errorf("resetting modem: %w", err)
	}
	if err := dev.EchoOff(); err != nil {
		return "", fmt.Errorf("disabling command echo: %w", err)
	}
	if err := dev.EnableSysLog(); err != nil {
		return "", fmt.Errorf("enabling system messages: %w", err)
	}

	version, err := dev.Version()
	if err != nil {
		logger.Warn("reading firmware version", "error", err)
		version = "unknown"
	} else {
		logger.Info("modem firmware", "version", version)
	}

	if err := dev.SetStationMode(); err != nil {
		return "", fmt.Errorf("selecting station mode: %w", err)
	}
	logger.Info("joining access point", "ssid", opts.SSID)
	if err := dev.JoinAP(opts.SSID, opts.Password); err != nil {
		return "", fmt.Errorf("joining %q: %w", opts.SSID, err)
	}
	ip, err := dev.StationIP()
	if err != nil {
		return "", fmt.Errorf("reading station address: %w", err)
	}

	if err := dev.EnableMux(); err != nil {
		return "", fmt.Errorf("enabling connection multiplexing: %w", err)
	}
	if err := dev.StartServer(opts.Listen); err != nil {
		return "", fmt.Errorf("starting TCP server: %w", err)
	}

	logger.Info("listening", "addr", fmt.Sprintf("%s:%d", ip, opts.Listen))
	return version, nil
}
