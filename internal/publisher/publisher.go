// Package publisher sends readings to an MQTT broker with paho.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
)

const (
	// QoS is at-least-once; PUBACKs are reported through Events, never
	// awaited by Publish.
	QoS byte = 1

	disconnectQuiesce = 250 // ms
	eventBuffer       = 64
)

type EventKind int

const (
	EventConnected EventKind = iota
	EventConnectFailed
	EventConnectionLost
	EventPublished
	EventPublishFailed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectFailed:
		return "connect_failed"
	case EventConnectionLost:
		return "connection_lost"
	case EventPublished:
		return "published"
	case EventPublishFailed:
		return "publish_failed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event reports an asynchronous connection or delivery outcome.
type Event struct {
	Kind  EventKind
	Topic string
	Err   error
}

type Publisher struct {
	client mqtt.Client
	broker string
	wait   time.Duration
	log    zerolog.Logger
	events chan Event
	once   sync.Once
}

// New builds a paho client for cfg. Nothing is sent until Connect. The
// client never reconnects or retries on its own.
func New(cfg config.MQTT, clientID string, logger zerolog.Logger) *Publisher {
	p := newPublisher(cfg, logger)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker()).
		SetClientID(clientID).
		SetKeepAlive(cfg.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.emit(Event{Kind: EventConnected})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.emit(Event{Kind: EventConnectionLost, Err: err})
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// NewWithClient wraps an existing paho client. Its handlers are the
// caller's business; only publish outcomes reach Events.
func NewWithClient(client mqtt.Client, cfg config.MQTT, logger zerolog.Logger) *Publisher {
	p := newPublisher(cfg, logger)
	p.client = client
	return p
}

func newPublisher(cfg config.MQTT, logger zerolog.Logger) *Publisher {
	return &Publisher{
		broker: cfg.Broker(),
		wait:   cfg.ConnectWait,
		log:    logger,
		events: make(chan Event, eventBuffer),
	}
}

// ClientID is the broker session name for a device/sensor pair.
func ClientID(prefix string, deviceID, sensorID int64) string {
	return fmt.Sprintf("%s_%d_%d", prefix, deviceID, sensorID)
}

// Connect starts the session and waits up to the configured grace period
// for the broker's CONNACK. A refused connection is returned as an error.
// If no answer arrives in time the wait ends with a warning and publishing
// goes ahead.
func (p *Publisher) Connect(ctx context.Context) error {
	p.log.Info().Str("broker", p.broker).Msg("connecting to mqtt broker")
	token := p.client.Connect()

	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.emit(Event{Kind: EventConnectFailed, Err: err})
			return fmt.Errorf("mqtt connect %s: %w", p.broker, err)
		}
		p.log.Info().Str("broker", p.broker).Msg("connected to mqtt broker")
		return nil
	case <-timer.C:
		p.log.Warn().Str("broker", p.broker).Dur("waited", p.wait).Msg("no connack yet, publishing anyway")
		go p.trackConnect(token)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish marshals payload to JSON and hands it to the client at QoS 1. It
// reports whether the client accepted the message; broker acknowledgment
// arrives later as an Event. A local rejection is logged here and produces
// no event.
func (p *Publisher) Publish(topic string, payload any) bool {
	b, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("encode payload")
		return false
	}

	token := p.client.Publish(topic, QoS, false, b)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.log.Error().Err(err).Str("topic", topic).Msg("publish rejected")
			return false
		}
		p.emit(Event{Kind: EventPublished, Topic: topic})
	default:
		go p.track(topic, token)
	}
	return true
}

// Disconnect ends the session, including one still waiting for CONNACK.
// Safe to call more than once.
func (p *Publisher) Disconnect() {
	p.once.Do(func() {
		p.client.Disconnect(disconnectQuiesce)
		p.log.Info().Str("broker", p.broker).Msg("disconnected from mqtt broker")
	})
}

// Events delivers connection and delivery outcomes. Events are dropped when
// nobody drains the channel.
func (p *Publisher) Events() <-chan Event { return p.events }

// trackConnect reports the outcome of a connect that outlived the grace
// wait. A refusal is left to whoever drains Events to log.
func (p *Publisher) trackConnect(token mqtt.Token) {
	<-token.Done()
	if err := token.Error(); err != nil {
		p.emit(Event{Kind: EventConnectFailed, Err: err})
		return
	}
	p.log.Info().Str("broker", p.broker).Msg("connected to mqtt broker")
}

func (p *Publisher) track(topic string, token mqtt.Token) {
	<-token.Done()
	if err := token.Error(); err != nil {
		p.emit(Event{Kind: EventPublishFailed, Topic: topic, Err: err})
		return
	}
	p.emit(Event{Kind: EventPublished, Topic: topic})
}

func (p *Publisher) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}
