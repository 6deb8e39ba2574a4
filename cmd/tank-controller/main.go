// Command tank-controller holds an aquarium at its target pH and temperature
// and serves the keypad menu on the attached LCD.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sweeney/tank-controller/internal/config"
	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/datalog"
	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/logging"
	"github.com/sweeney/tank-controller/internal/metrics"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/pid"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/status"
	"github.com/sweeney/tank-controller/internal/store"
	"github.com/sweeney/tank-controller/internal/tank"
	"github.com/sweeney/tank-controller/internal/ui"
	"github.com/sweeney/tank-controller/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "/etc/tank-controller/config.yaml", "YAML configuration file")
	broker := flag.String("broker", "", `MQTT broker address (overrides config, "off" disables)`)
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	printSettings := flag.Bool("print-settings", false, "Print stored settings and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(cfg, *broker, *httpAddr, *logLevel)

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, *printSettings, logger); err != nil {
		logger.Fatalw("fatal", "error", err)
	}
}

// applyOverrides lets command-line flags replace config values. "off"
// disables the broker or HTTP server.
func applyOverrides(cfg *config.Config, broker, httpAddr, logLevel string) {
	switch broker {
	case "":
	case "off":
		cfg.MQTT.Broker = ""
	default:
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

func run(cfg *config.Config, printOnly bool, log *zap.SugaredLogger) error {
	st, err := store.OpenBolt(cfg.SettingsDB, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if printOnly {
		writeSettings(os.Stdout, st)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Actuators and liveness LED
	phOut, err := gpio.NewRealOutput(cfg.GPIOChip, cfg.PH.Pin, cfg.PH.ActiveLow)
	if err != nil {
		return fmt.Errorf("init ph actuator: %w", err)
	}
	defer phOut.Close()
	tempOut, err := gpio.NewRealOutput(cfg.GPIOChip, cfg.Temp.Pin, cfg.Temp.ActiveLow)
	if err != nil {
		return fmt.Errorf("init temp actuator: %w", err)
	}
	defer tempOut.Close()
	led, err := gpio.NewRealOutput(cfg.GPIOChip, cfg.LEDPin, false)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer led.Close()

	pad, closePad := openKeypad(cfg, log)
	defer closePad()
	display, closeDisplay := openDisplay(cfg, log)
	defer closeDisplay()

	// Sensors
	var (
		phWriter   io.Writer = io.Discard
		serialData chan []byte
	)
	if cfg.PHProbe.Port != "" {
		port, err := sensor.OpenPHPort(cfg.PHProbe.Port, cfg.PHProbe.Baud)
		if err != nil {
			log.Warnw("ph probe unavailable, running without pH readings", "error", err)
		} else {
			defer port.Close()
			phWriter = port
			serialData = make(chan []byte, 16)
			go func() {
				if err := sensor.Pump(ctx, port, serialData); err != nil {
					log.Warnw("ph probe read stopped", "error", err)
				}
			}()
		}
	}
	phProbe := sensor.NewPHProbe(phWriter, cfg.PHProbe.Samples, log)
	tempProbe := sensor.NewTempProbe(cfg.TempProbe.Device, cfg.TempProbe.Samples, cfg.TempProbe.Interval, log)
	tempProbe.SetCorrection(st.TempCorrection())
	go tempProbe.Run(ctx)

	phCtl, err := newController(control.LoopPH, cfg.PH, st, phOut)
	if err != nil {
		return err
	}
	tempCtl, err := newController(control.LoopTemp, cfg.Temp, st, tempOut)
	if err != nil {
		return err
	}

	sink, err := datalog.NewFileSink(cfg.LogDir, time.Now)
	if err != nil {
		return err
	}

	// Initialize MQTT
	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix, st.TankID()),
			BufferSize: cfg.MQTT.BufferSize,
		}, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer rp.Close()
		publisher, mqttStatus = rp, rp
		m.RegisterRelay(rp.Stats)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:        cfg.Tick.Milliseconds(),
		IdleTimeoutMs: cfg.IdleTimeout.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTPAddr,
		Version:       version,
	})
	network := networkInfo()
	if network != nil {
		tracker.SetNetwork(network)
	}

	info := ui.DeviceInfo{Version: version}
	if network != nil {
		info.IP, info.MAC = network.IP, network.MAC
	}
	tk, err := tank.New(tank.Deps{
		Keypad:      pad,
		Display:     display,
		LED:         led,
		Store:       st,
		PH:          phProbe,
		Temp:        tempProbe,
		PHControl:   phCtl,
		TempControl: tempCtl,
		Sink:        sink,
		Relay:       publisher,
		Tracker:     tracker,
		Metrics:     m,
		Log:         log,
		Now:         time.Now,
	}, tank.Options{
		IdleTimeout: cfg.IdleTimeout,
		Dwell:       cfg.Dwell,
		Info:        info,
	})
	if err != nil {
		return err
	}
	tk.Tick()

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Warnw("failed to publish startup event", "error", err)
		} else {
			log.Infow("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started", "version", version, "tick", cfg.Tick, "broker", cfg.MQTT.Broker, "heartbeat", cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(tk, publisher, mqttStatus, tracker, cfg.Heartbeat, time.Now, ticker.C, serialData, sigCh, log)
}

// newController builds the PID loop, actuation window and controller for one
// loop from its config and the stored settings.
func newController(loop control.Loop, lc config.LoopConfig, st store.Store, out control.Output) (*control.Controller, error) {
	w, err := control.NewWindow(lc.Window, lc.MinActuation, out)
	if err != nil {
		return nil, fmt.Errorf("%s window: %w", loop, err)
	}
	dir, ok := pid.ParseDirection(lc.Direction)
	if !ok {
		return nil, fmt.Errorf("%s: unknown direction %q", loop, lc.Direction)
	}
	p := pid.New(st.Gains(loop), dir, float64(lc.Window.Milliseconds()), time.Now)
	c := control.NewController(loop, w, p, st.Target(loop))
	c.SetAutomatic(st.Automatic(loop))
	return c, nil
}

// idleKeypad never reports a key. Used when no keypad is attached.
type idleKeypad struct{}

func (idleKeypad) Poll() (keypad.Key, error) { return keypad.NoKey, nil }

func openKeypad(cfg *config.Config, log *zap.SugaredLogger) (keypad.Keypad, func()) {
	switch cfg.Keypad.Driver {
	case "matrix":
		k, err := gpio.NewMatrixKeypad(cfg.GPIOChip, cfg.Keypad.Rows, cfg.Keypad.Cols)
		if err != nil {
			log.Warnw("keypad unavailable, menu disabled", "error", err)
			return idleKeypad{}, func() {}
		}
		return k, func() { k.Close() }
	case "stdin":
		return keypad.NewStream(os.Stdin), func() {}
	}
	return idleKeypad{}, func() {}
}

func openDisplay(cfg *config.Config, log *zap.SugaredLogger) (lcd.Display, func()) {
	if cfg.LCD.Driver == "hd44780" {
		d, err := lcd.OpenHD44780(cfg.LCD.Bus, cfg.LCD.Address, log)
		if err == nil {
			return d, func() { d.Close() }
		}
		log.Warnw("lcd unavailable, logging display instead", "error", err)
	}
	return lcd.NewLogDisplay(log), func() {}
}

func runLoop(tk *tank.Tank, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, serialData <-chan []byte, sig <-chan os.Signal, log *zap.SugaredLogger) error {
	lastBeat := now()

	for {
		select {
		case s := <-sig:
			log.Infow("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			tk.Close()
			if publisher == nil {
				return nil
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warnw("failed to publish shutdown event", "error", err)
			} else {
				log.Infow("published shutdown event")
			}
			return nil

		case data := <-serialData:
			tk.OnSerialData(data)

		case <-tick:
			tk.Tick()

			t := now()
			if heartbeat <= 0 || t.Sub(lastBeat) < heartbeat {
				continue
			}
			lastBeat = t
			if publisher == nil {
				continue
			}
			// Refresh network info for heartbeat
			if n := networkInfo(); n != nil {
				tracker.SetNetwork(n)
			}
			snap := tracker.Snapshot()
			log.Infow("heartbeat", "uptime", snap.Uptime(), "state", snap.State, "relay_pending", snap.Relay.Pending)
			hb := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hb); err != nil {
				log.Warnw("heartbeat publish error", "error", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// networkInfo prefers what pi-helper reports and fills in the MAC (and the IP
// when pi-helper is absent) from the first interface that is up.
func networkInfo() *status.NetworkInfo {
	info := readNetworkInfo()
	ifaces, err := net.Interfaces()
	if err != nil {
		return info
	}
	name, ip, mac := firstAddress(ifaces, func(i net.Interface) ([]net.Addr, error) { return i.Addrs() })
	if name == "" {
		return info
	}
	if info == nil {
		info = &status.NetworkInfo{Type: name, IP: ip, Status: "up"}
	}
	if info.IP == "" {
		info.IP = ip
	}
	info.MAC = mac
	return info
}

// firstAddress returns the name, IPv4 address and MAC of the first interface
// that is up, not loopback and has an IPv4 address.
func firstAddress(ifaces []net.Interface, addrs func(net.Interface) ([]net.Addr, error)) (name, ip, mac string) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range list {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			return iface.Name, ipnet.IP.String(), iface.HardwareAddr.String()
		}
	}
	return "", "", ""
}

// writeSettings prints the stored settings, one per line.
func writeSettings(w io.Writer, st store.Store) {
	fmt.Fprintf(w, "tank id: %d\n", st.TankID())
	for _, loop := range control.Loops {
		g := st.Gains(loop)
		fmt.Fprintf(w, "%s: target=%g kp=%g ki=%g kd=%g automatic=%t\n",
			loop, st.Target(loop), g.Kp, g.Ki, g.Kd, st.Automatic(loop))
	}
	fmt.Fprintf(w, "temp correction: %g\n", st.TempCorrection())
}
