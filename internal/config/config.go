package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults shared by the flag definitions and the viper defaults so that an
// unset flag, an unset env var and an absent config file all agree.
const (
	DefaultAPIURL      = "http://localhost:5000/api/v1"
	DefaultAPITimeout  = 5 * time.Second
	DefaultMQTTHost    = "localhost"
	DefaultMQTTPort    = 1883
	DefaultKeepAlive   = 60 * time.Second
	DefaultConnectWait = 2 * time.Second
	DefaultDrainWait   = 2 * time.Second

	DefaultDeviceName = "Temperature Monitoring Device"
	DefaultDeviceType = "Environmental Monitor"
	DefaultSensorName = "Temperature Sensor"
	DefaultSensorType = "Temperature"
	DefaultUnit       = "°C"
	DefaultLocation   = "Simulation Lab"

	DefaultInterval    = 5
	DefaultCount       = 10
	DefaultTopicFormat = "devices"

	DefaultRegistryAddr = ":5000"
	DefaultLogLevel     = "info"
)

// envKeys lists the only environment variables Load reads, by config key.
var envKeys = map[string][]string{
	"log-level": {"LOG_LEVEL"},
	"api-url":   {"API_URL"},
	"mqtt-host": {"MQTT_HOST"},
	"mqtt-port": {"MQTT_PORT"},
	"addr":      {"REGISTRY_ADDR", "API_ADDR"},
	"db-dsn":    {"DB_DSN"},
}

// Config is the full runtime configuration. Each binary only reads the
// sections it needs; sections it has no flags for keep their defaults.
type Config struct {
	LogLevel string
	API      API
	MQTT     MQTT
	Device   Device
	Sensor   Sensor
	Sim      Sim
	Registry Registry
}

type API struct {
	URL     string
	Timeout time.Duration
}

type MQTT struct {
	Host        string
	Port        int
	KeepAlive   time.Duration
	ConnectWait time.Duration
}

// Broker returns the paho broker URL for Host and Port.
func (m MQTT) Broker() string { return fmt.Sprintf("tcp://%s:%d", m.Host, m.Port) }

type Device struct {
	ID       int64
	Name     string
	Type     string
	Location string
}

type Sensor struct {
	ID   int64
	Name string
	Type string
	Unit string
}

// Sim holds the publish loop limits. Duration and Count are mutually
// exclusive; zero means "no limit" for either.
type Sim struct {
	Interval    time.Duration
	Duration    time.Duration
	Count       int
	TopicFormat string
	DrainWait   time.Duration
	// Value is set only in single-reading mode.
	Value *float64
}

type Registry struct {
	Addr string
	DSN  string
}

// Load builds a Config from, in increasing priority: defaults, an optional
// config file (--config), a .env file, the environment and the flags in fs.
// fs must already be parsed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, names := range envKeys {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("log-level"),
		API: API{
			URL:     strings.TrimRight(v.GetString("api-url"), "/"),
			Timeout: v.GetDuration("api-timeout"),
		},
		MQTT: MQTT{
			Host:        v.GetString("mqtt-host"),
			Port:        v.GetInt("mqtt-port"),
			KeepAlive:   v.GetDuration("mqtt-keepalive"),
			ConnectWait: v.GetDuration("connect-wait"),
		},
		Device: Device{
			ID:       v.GetInt64("device-id"),
			Name:     v.GetString("device-name"),
			Type:     v.GetString("device-type"),
			Location: v.GetString("location"),
		},
		Sensor: Sensor{
			ID:   v.GetInt64("sensor-id"),
			Name: v.GetString("sensor-name"),
			Type: v.GetString("sensor-type"),
			Unit: v.GetString("unit"),
		},
		Sim: Sim{
			Interval:    time.Duration(v.GetInt("interval")) * time.Second,
			Duration:    time.Duration(v.GetInt("duration")) * time.Second,
			Count:       v.GetInt("count"),
			TopicFormat: v.GetString("topic-format"),
			DrainWait:   v.GetDuration("drain-wait"),
		},
		Registry: Registry{
			Addr: v.GetString("addr"),
			DSN:  v.GetString("db-dsn"),
		},
	}

	if flags != nil {
		// A duration on its own replaces the default count. Asking for both
		// explicitly is rejected by Validate.
		if cfg.Sim.Duration > 0 && !flags.Changed("count") && !v.InConfig("count") {
			cfg.Sim.Count = 0
		}
		if f := flags.Lookup("value"); f != nil && f.Changed {
			val := v.GetFloat64("value")
			cfg.Sim.Value = &val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the run loop cannot honor.
func (c *Config) Validate() error {
	switch {
	case c.Sim.Interval <= 0:
		return errors.New("interval must be positive")
	case c.Sim.Duration < 0:
		return errors.New("duration must not be negative")
	case c.Sim.Count < 0:
		return errors.New("count must not be negative")
	case c.Sim.Duration > 0 && c.Sim.Count > 0:
		return errors.New("duration and count are mutually exclusive")
	case c.MQTT.Port <= 0 || c.MQTT.Port > 65535:
		return fmt.Errorf("invalid mqtt port %d", c.MQTT.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", DefaultLogLevel)

	v.SetDefault("api-url", DefaultAPIURL)
	v.SetDefault("api-timeout", DefaultAPITimeout)

	v.SetDefault("mqtt-host", DefaultMQTTHost)
	v.SetDefault("mqtt-port", DefaultMQTTPort)
	v.SetDefault("mqtt-keepalive", DefaultKeepAlive)
	v.SetDefault("connect-wait", DefaultConnectWait)

	v.SetDefault("device-id", 1)
	v.SetDefault("device-name", DefaultDeviceName)
	v.SetDefault("device-type", DefaultDeviceType)
	v.SetDefault("location", DefaultLocation)
	v.SetDefault("sensor-id", 1)
	v.SetDefault("sensor-name", DefaultSensorName)
	v.SetDefault("sensor-type", DefaultSensorType)
	v.SetDefault("unit", DefaultUnit)

	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("duration", 0)
	// count has no default here: sensorsim's flag default must win and a
	// viper default would shadow it.
	v.SetDefault("topic-format", DefaultTopicFormat)
	v.SetDefault("drain-wait", DefaultDrainWait)

	v.SetDefault("addr", DefaultRegistryAddr)
	v.SetDefault("db-dsn", "")
}
