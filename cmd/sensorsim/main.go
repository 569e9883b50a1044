package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/generator"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/publisher"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/simulator"
)

// singleWait is both the connect grace and the drain wait of a --value run.
const singleWait = time.Second

func main() {
	fs := pflag.NewFlagSet("sensorsim", pflag.ExitOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("log-level", config.DefaultLogLevel, "log level")
	fs.Int64("device-id", 1, "device ID")
	fs.Int64("sensor-id", 1, "sensor ID")
	fs.Float64("value", 0, "send this single value and exit")
	fs.Int("interval", config.DefaultInterval, "seconds between readings")
	fs.Int("count", config.DefaultCount, "number of readings to send")
	fs.Int("duration", 0, "seconds to run instead of a fixed count")
	fs.String("topic-format", config.DefaultTopicFormat, `"devices", "sensor", or a literal topic`)
	fs.String("mqtt-host", config.DefaultMQTTHost, "MQTT broker host")
	fs.Int("mqtt-port", config.DefaultMQTTPort, "MQTT broker port")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging(cfg.LogLevel)
	logger := log.With().Str("run_id", uuid.NewString()).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := simulator.OptionsFromConfig(cfg)
	var gen simulator.Generator = generator.NewUniform(nil)
	if cfg.Sim.Value != nil {
		gen = generator.Fixed(*cfg.Sim.Value)
		opts.Count, opts.Duration = 1, 0
		opts.DrainWait = singleWait
		cfg.MQTT.ConnectWait = singleWait
		logger.Info().Float64("value", *cfg.Sim.Value).Msg("sending single sensor reading")
	}

	dial := func(deviceID, sensorID int64) simulator.Publisher {
		return publisher.New(cfg.MQTT, publisher.ClientID("sensor", deviceID, sensorID), logger)
	}

	r := simulator.New(opts, nil, dial, gen, logger)
	if err := r.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("simulation failed")
		stop()
		os.Exit(1)
	}
}
