package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/generator"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/provision"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/publisher"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/simulator"
)

func main() {
	fs := pflag.NewFlagSet("tempsim", pflag.ExitOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("log-level", config.DefaultLogLevel, "log level")
	fs.String("device-name", config.DefaultDeviceName, "device name")
	fs.String("device-type", config.DefaultDeviceType, "device type")
	fs.String("sensor-name", config.DefaultSensorName, "sensor name")
	fs.String("sensor-type", config.DefaultSensorType, "sensor type")
	fs.String("unit", config.DefaultUnit, "sensor unit")
	fs.String("location", config.DefaultLocation, "device location")
	fs.Int("interval", config.DefaultInterval, "seconds between readings")
	fs.Int("duration", 0, "seconds to run, 0 runs until interrupted")
	fs.String("api-url", config.DefaultAPIURL, "registry API base URL")
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
	opts.TopicFormat = publisher.FormatDevices
	opts.Count = 0
	opts.DrainWait = 0

	dial := func(deviceID, sensorID int64) simulator.Publisher {
		return publisher.New(cfg.MQTT, publisher.ClientID("temp_sensor", deviceID, sensorID), logger)
	}
	prov := provision.New(cfg.API, logger)

	r := simulator.New(opts, prov, dial, generator.NewTemperature(nil), logger)
	if err := r.Run(ctx); err != nil {
		logger.Error().Err(err).Str("api", cfg.API.URL).Msg("simulation failed")
		stop()
		os.Exit(1)
	}
}
