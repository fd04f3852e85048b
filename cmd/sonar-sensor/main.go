// Command sonar-sensor drives a trigger/echo ultrasonic range sensor and
// publishes echo durations to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"github.com/sweeney/sonar-sensor/internal/config"
	"github.com/sweeney/sonar-sensor/internal/dispatch"
	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/measurement"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
	"github.com/sweeney/sonar-sensor/internal/serial"
	"github.com/sweeney/sonar-sensor/internal/sonar"
	"github.com/sweeney/sonar-sensor/internal/status"
	"github.com/sweeney/sonar-sensor/internal/web"
)

const (
	VERSION = "1.0.0+20261001"
	MODULE  = "sonar-sensor"
)

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    MODULE,
		Usage:   "Ultrasonic range sensor daemon",
		Version: VERSION,
		Description: "Triggers a trigger/echo ultrasonic sensor on GPIO, times the echo pulse" +
			"\n in ticks and publishes each completed measurement to MQTT.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Usage: "`LEVEL` overrides the log level (standard|debug|trace|full)"},
			&cli.BoolFlag{Name: "print-state", Destination: &cfg.Flag.PrintState, Usage: "take one measurement, print it and exit"},
		},
		Action: func(ctx *cli.Context) error {
			return run(cfg)
		},
	}
	sort.Sort(cli.FlagsByName(cliApp.Flags))

	if err := cliApp.Run(os.Args); err != nil {
		debug.FatalLog.Print(err)
		return
	}
	exitCode = 0
}

func run(cfg *config.Config) error {
	if err := cfg.Load(); err != nil {
		return err
	}
	if err := cfg.OpenLog(); err != nil {
		return err
	}
	debug.SetDebug(cfg.Log.File, cfg.Log.Flag)

	sensor, err := gpio.NewRealSensor(cfg.GPIO.Chip, cfg.GPIO.Trigger, cfg.GPIO.Echo)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer sensor.Close()

	store := measurement.NewStore(time.Now)
	disp := dispatch.New(sonar.NewMachine(store), sensor)
	disp.SetTickPeriod(cfg.Tick)

	// The ticker drops ticks when the dispatcher falls behind; the
	// dispatcher recovers the lost periods from the tick timestamps.
	tickTicker := time.NewTicker(cfg.Tick)
	defer tickTicker.Stop()

	if cfg.Flag.PrintState {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m, ok := measureOnce(ctx, disp, store, tickTicker.C, sensor.Edges())
		fmt.Println(formatState(disp.Snapshot(), m, ok))
		return nil
	}

	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Topic:      cfg.MQTT.Topic,
			BufferSize: cfg.MQTT.Buffer,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickUs:      cfg.Tick.Microseconds(),
		ReportMs:    cfg.Report.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		PinTrigger:  cfg.GPIO.Trigger,
		PinEcho:     cfg.GPIO.Echo,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.Webserver.Addr,
		SerialPort:  cfg.Serial.Port,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if publisher != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			debug.ErrorLog.Printf("failed to publish startup event: %v", err)
		} else {
			debug.InfoLog.Printf("published startup event")
		}
	}

	if cfg.Webserver.Addr != "" {
		srv := web.New(cfg.Webserver.Addr, tracker, web.BuildInfo{Module: MODULE, Version: VERSION})
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				debug.ErrorLog.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown()
		debug.InfoLog.Printf("http status server listening on %s", cfg.Webserver.Addr)
	}

	var reporter *serial.Reporter
	if cfg.Serial.Port != "" {
		port, err := serial.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		reporter = serial.NewReporter(port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := disp.Run(ctx, tickTicker.C, sensor.Edges()); err != nil && !errors.Is(err, context.Canceled) {
			debug.ErrorLog.Printf("dispatcher stopped: %v", err)
		}
	}()

	debug.InfoLog.Printf("started %s: tick=%v report=%v trigger=%d echo=%d broker=%s",
		VERSION, cfg.Tick, cfg.Report, cfg.GPIO.Trigger, cfg.GPIO.Echo, cfg.MQTT.Broker)

	reportTicker := time.NewTicker(cfg.Report)
	defer reportTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	d := &daemon{
		disp:       disp,
		store:      store,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		reporter:   reporter,
		tickPeriod: cfg.Tick,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	return d.runLoop(reportTicker.C, sigCh)
}

// measureOnce drives the dispatcher until the first measurement is committed
// or ctx expires.
func measureOnce(ctx context.Context, disp *dispatch.Dispatcher, store *measurement.Store, ticks <-chan time.Time, edges <-chan struct{}) (measurement.Measurement, bool) {
	for {
		select {
		case <-ctx.Done():
			return store.Snapshot(), false
		case t := <-ticks:
			disp.OnTickAt(t)
		case <-edges:
			disp.OnEchoEdge()
		}
		if m := store.Snapshot(); m.Seq > 0 {
			return m, true
		}
	}
}

func formatState(s dispatch.Snapshot, m measurement.Measurement, ok bool) string {
	if !ok {
		return fmt.Sprintf("no echo (state=%s wait_timeouts=%d measure_timeouts=%d)",
			s.State, s.Counts.WaitTimeouts, s.Counts.MeasureTimeouts)
	}
	return fmt.Sprintf("echo: %d ticks", m.Ticks)
}
