package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/publisher"
)

// ingestor subscribes to the reading topics and logs what the simulators
// publish. It stores nothing.
func main() {
	fs := pflag.NewFlagSet("ingestor", pflag.ExitOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("log-level", config.DefaultLogLevel, "log level")
	fs.String("mqtt-host", config.DefaultMQTTHost, "MQTT broker host")
	fs.Int("mqtt-port", config.DefaultMQTTPort, "MQTT broker port")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging(cfg.LogLevel)

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTT.Broker()).SetClientID("reading_ingestor")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		deviceID, sensorID, ok := publisher.ParseTopic(msg.Topic())
		if !ok {
			log.Warn().Str("topic", msg.Topic()).Msg("unrecognised topic")
			return
		}
		var r domain.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
			return
		}
		log.Info().
			Int64("device_id", deviceID).
			Int64("sensor_id", sensorID).
			Float64("value", r.Value).
			Str("timestamp", r.Timestamp).
			Msg("reading")
	}

	filters := make(map[string]byte, len(publisher.ReadingFilters))
	for _, f := range publisher.ReadingFilters {
		filters[f] = publisher.QoS
	}
	if token := client.SubscribeMultiple(filters, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Strs("topics", publisher.ReadingFilters).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
}
