// Package config loads the daemon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
)

// Config defines the struct of the configuration file. Durations are kept
// in the file as integer units and converted by Load.
type Config struct {
	GPIO       GPIOConfig      `yaml:"gpio"`
	TickUs     int             `yaml:"tick_us"`
	ReportMs   int             `yaml:"report_ms"`
	HeartbeatS int             `yaml:"heartbeat_s"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	Webserver  WebserverConfig `yaml:"webserver"`
	Serial     SerialConfig    `yaml:"serial"`
	Log        LogConfig       `yaml:"log"`

	Tick      time.Duration `yaml:"-"`
	Report    time.Duration `yaml:"-"`
	Heartbeat time.Duration `yaml:"-"`
	Flag      FlagConfig    `yaml:"-"`
}

// GPIOConfig defines the sensor wiring (BCM numbering).
type GPIOConfig struct {
	Chip    string `yaml:"chip"`
	Trigger int    `yaml:"trigger"`
	Echo    int    `yaml:"echo"`
}

// MQTTConfig defines the broker connection. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Buffer   int    `yaml:"buffer"`
}

// WebserverConfig defines the status server address. Empty disables it.
type WebserverConfig struct {
	Addr string `yaml:"addr"`
}

// SerialConfig defines the serial report port. Empty port disables it.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// LogConfig defines the log level and destination.
type LogConfig struct {
	Level      string         `yaml:"level"`
	FileString string         `yaml:"file"`
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
}

// FlagConfig holds command line values that override the file.
type FlagConfig struct {
	ConfigFile string
	LogLevel   string
	PrintState bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:    gpio.DefaultChip,
			Trigger: gpio.DefaultPinTrigger,
			Echo:    gpio.DefaultPinEcho,
		},
		TickUs:     58,
		ReportMs:   1000,
		HeartbeatS: 900,
		MQTT: MQTTConfig{
			Broker:   "tcp://127.0.0.1:1883",
			ClientID: "sonar-sensor",
			Topic:    mqtt.Topic,
			Buffer:   mqtt.DefaultBufferSize,
		},
		Webserver: WebserverConfig{Addr: ":8080"},
		Serial:    SerialConfig{Baud: 115200},
		Log: LogConfig{
			Level:      "standard",
			FileString: "stderr",
		},
	}
}

// Load reads the config file named by Flag.ConfigFile (if any), applies
// command line overrides, validates and derives durations.
func (c *Config) Load() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.LogLevel != "" {
		c.Log.Level = c.Flag.LogLevel
	}

	if err := c.Validate(); err != nil {
		return err
	}

	c.Tick = time.Duration(c.TickUs) * time.Microsecond
	c.Report = time.Duration(c.ReportMs) * time.Millisecond
	c.Heartbeat = time.Duration(c.HeartbeatS) * time.Second
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.TickUs <= 0 {
		errs = append(errs, fmt.Errorf("tick_us must be positive, got %d", c.TickUs))
	}
	if c.ReportMs <= 0 {
		errs = append(errs, fmt.Errorf("report_ms must be positive, got %d", c.ReportMs))
	}
	if c.HeartbeatS < 0 {
		errs = append(errs, fmt.Errorf("heartbeat_s must not be negative, got %d", c.HeartbeatS))
	}
	if c.GPIO.Trigger == c.GPIO.Echo {
		errs = append(errs, fmt.Errorf("trigger and echo must use different pins, both %d", c.GPIO.Echo))
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial baud must be positive, got %d", c.Serial.Baud))
	}
	if _, ok := logFlags[c.Log.Level]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	decoder.SetStrict(true)
	return decoder.Decode(c)
}

// logFlags maps log level names to debug flags. "full" is an alias of
// "trace": both enable every logger, including the per-tick trace.
var logFlags = map[string]int{
	"standard": debug.Standard,
	"debug":    debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug,
	"trace":    debug.Full,
	"full":     debug.Full,
}

// OpenLog resolves the log level flag and opens the log destination.
func (c *Config) OpenLog() error {
	c.Log.Flag = logFlags[c.Log.Level]

	switch c.Log.FileString {
	case "stderr", "":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		f, err := os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", c.Log.FileString, err)
		}
		c.Log.File = f
	}
	return nil
}
