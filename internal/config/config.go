// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/sensor"
)

// Config represents the daemon configuration.
type Config struct {
	Tick        time.Duration `yaml:"tick"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Dwell       time.Duration `yaml:"dwell"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	GPIOChip    string        `yaml:"gpio_chip"`
	LEDPin      int           `yaml:"led_pin"`
	PH          LoopConfig    `yaml:"ph"`
	Temp        LoopConfig    `yaml:"temp"`
	Keypad      KeypadConfig  `yaml:"keypad"`
	LCD         LCDConfig     `yaml:"lcd"`
	PHProbe     PHProbeConfig `yaml:"ph_probe"`
	TempProbe   TempConfig    `yaml:"temp_probe"`
	SettingsDB  string        `yaml:"settings_db"`
	LogDir      string        `yaml:"log_dir"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	HTTPAddr    string        `yaml:"http_addr"`
	Logging     LoggingConfig `yaml:"logging"`
}

// LoopConfig describes the actuator of one control loop.
type LoopConfig struct {
	Pin          int           `yaml:"pin"`
	ActiveLow    bool          `yaml:"active_low"`
	Window       time.Duration `yaml:"window"`
	MinActuation time.Duration `yaml:"min_actuation"`
	Direction    string        `yaml:"direction"` // "direct" or "reverse"
}

// KeypadConfig selects the keypad driver.
type KeypadConfig struct {
	Driver string `yaml:"driver"` // "matrix", "stdin" or "none"
	Rows   []int  `yaml:"rows"`
	Cols   []int  `yaml:"cols"`
}

// LCDConfig selects the display driver.
type LCDConfig struct {
	Driver  string `yaml:"driver"` // "hd44780" or "log"
	Bus     byte   `yaml:"bus"`
	Address byte   `yaml:"address"`
}

// PHProbeConfig is the serial link to the pH probe. An empty port disables it.
type PHProbeConfig struct {
	Port    string `yaml:"port"`
	Baud    int    `yaml:"baud"`
	Samples int    `yaml:"samples"`
}

// TempConfig is the 1-wire thermometer.
type TempConfig struct {
	Device   string        `yaml:"device"`
	Samples  int           `yaml:"samples"`
	Interval time.Duration `yaml:"interval"`
}

// MQTTConfig configures the network relay. An empty broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration of a stock Raspberry Pi build.
func Default() *Config {
	return &Config{
		Tick:        100 * time.Millisecond,
		IdleTimeout: 60 * time.Second,
		Dwell:       time.Second,
		Heartbeat:   15 * time.Minute,
		GPIOChip:    gpio.DefaultChip,
		LEDPin:      gpio.DefaultPinLED,
		PH: LoopConfig{
			Pin:          gpio.DefaultPinPH,
			Window:       10 * time.Second,
			MinActuation: time.Second,
			Direction:    "reverse",
		},
		Temp: LoopConfig{
			Pin:          gpio.DefaultPinTemp,
			Window:       10 * time.Second,
			MinActuation: time.Second,
			Direction:    "direct",
		},
		Keypad: KeypadConfig{
			Driver: "matrix",
			Rows:   gpio.DefaultKeypadRows,
			Cols:   gpio.DefaultKeypadCols,
		},
		LCD: LCDConfig{
			Driver:  "hd44780",
			Bus:     1,
			Address: 0x27,
		},
		PHProbe: PHProbeConfig{
			Port:    "/dev/ttyAMA0",
			Baud:    sensor.DefaultPHBaud,
			Samples: 10,
		},
		TempProbe: TempConfig{
			Device:   "/sys/bus/w1/devices/28-000000000000/w1_slave",
			Samples:  10,
			Interval: time.Second,
		},
		SettingsDB: "/var/lib/tank-controller/settings.db",
		LogDir:     "/var/lib/tank-controller/log",
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "tank-controller",
			TopicPrefix: "tank",
			BufferSize:  600,
		},
		HTTPAddr: ":80",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from a YAML file. A missing file yields the
// defaults; missing fields are filled from them.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	for name, l := range map[string]LoopConfig{"ph": c.PH, "temp": c.Temp} {
		if l.MinActuation >= l.Window {
			return fmt.Errorf("config: %s min_actuation %v must be shorter than window %v", name, l.MinActuation, l.Window)
		}
		if l.Direction != "direct" && l.Direction != "reverse" {
			return fmt.Errorf("config: %s direction %q must be direct or reverse", name, l.Direction)
		}
	}
	switch c.Keypad.Driver {
	case "matrix", "stdin", "none":
	default:
		return fmt.Errorf("config: unknown keypad driver %q", c.Keypad.Driver)
	}
	switch c.LCD.Driver {
	case "hd44780", "log":
	default:
		return fmt.Errorf("config: unknown lcd driver %q", c.LCD.Driver)
	}
	return nil
}

// ensureDefaults fills zero fields from Default.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Tick == 0 {
		c.Tick = def.Tick
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.Dwell == 0 {
		c.Dwell = def.Dwell
	}
	if c.GPIOChip == "" {
		c.GPIOChip = def.GPIOChip
	}

	for _, pair := range []struct{ l, d *LoopConfig }{{&c.PH, &def.PH}, {&c.Temp, &def.Temp}} {
		if pair.l.Window == 0 {
			pair.l.Window = pair.d.Window
		}
		if pair.l.MinActuation == 0 {
			pair.l.MinActuation = pair.d.MinActuation
		}
		if pair.l.Direction == "" {
			pair.l.Direction = pair.d.Direction
		}
	}

	if c.Keypad.Driver == "" {
		c.Keypad.Driver = def.Keypad.Driver
	}
	if len(c.Keypad.Rows) == 0 {
		c.Keypad.Rows = def.Keypad.Rows
	}
	if len(c.Keypad.Cols) == 0 {
		c.Keypad.Cols = def.Keypad.Cols
	}
	if c.LCD.Driver == "" {
		c.LCD.Driver = def.LCD.Driver
	}
	if c.LCD.Address == 0 {
		c.LCD.Address = def.LCD.Address
	}

	if c.PHProbe.Baud == 0 {
		c.PHProbe.Baud = def.PHProbe.Baud
	}
	if c.PHProbe.Samples == 0 {
		c.PHProbe.Samples = def.PHProbe.Samples
	}
	if c.TempProbe.Samples == 0 {
		c.TempProbe.Samples = def.TempProbe.Samples
	}
	if c.TempProbe.Interval == 0 {
		c.TempProbe.Interval = def.TempProbe.Interval
	}

	if c.SettingsDB == "" {
		c.SettingsDB = def.SettingsDB
	}
	if c.LogDir == "" {
		c.LogDir = def.LogDir
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
