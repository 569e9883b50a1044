package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func completedToken(err error) *fakeToken {
	t := pendingToken()
	t.complete(err)
	return t
}

func (t *fakeToken) complete(err error) {
	t.err = err
	close(t.done)
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements mqtt.Client, recording what the publisher asks of it.
type fakeClient struct {
	mu           sync.Mutex
	connectToken *fakeToken
	publishToken func() *fakeToken
	open         bool
	published    []published
	disconnects  int
}

func (c *fakeClient) IsConnected() bool      { return c.open }
func (c *fakeClient) IsConnectionOpen() bool { return c.open }
func (c *fakeClient) Connect() mqtt.Token {
	if c.connectToken == nil {
		c.open = true
		return completedToken(nil)
	}
	return c.connectToken
}
func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.open = false
}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	if c.publishToken != nil {
		return c.publishToken()
	}
	return completedToken(nil)
}
func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return completedToken(nil)
}
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return completedToken(nil)
}
func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return completedToken(nil) }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

var testMQTT = config.MQTT{Host: "localhost", Port: 1883, ConnectWait: 50 * time.Millisecond}

func nextEvent(t *testing.T, p *Publisher) Event {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event within 1s")
	}
	return Event{}
}

func TestTopic(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"devices", "devices/7/sensors/3/readings"},
		{"sensor", "sensor/reading/7/3"},
		{"custom/topic", "custom/topic"},
	}
	for _, tt := range tests {
		if got := Topic(tt.format, 7, 3); got != tt.want {
			t.Errorf("Topic(%q, 7, 3) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestClientID(t *testing.T) {
	if got := ClientID("temp_sensor", 4, 9); got != "temp_sensor_4_9" {
		t.Errorf("ClientID() = %q, want temp_sensor_4_9", got)
	}
}

func TestPublish_Accepted(t *testing.T) {
	fc := &fakeClient{open: true}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	reading := domain.Reading{Value: 21.37, Timestamp: "2025-01-01T00:00:00.000000"}
	if !p.Publish("devices/1/sensors/2/readings", reading) {
		t.Fatal("Publish() = false, want true")
	}
	if len(fc.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.published))
	}
	msg := fc.published[0]
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos = %d retained = %v, want 1 false", msg.qos, msg.retained)
	}
	var got domain.Reading
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got != reading {
		t.Errorf("payload = %+v, want %+v", got, reading)
	}
	if ev := nextEvent(t, p); ev.Kind != EventPublished || ev.Topic != msg.topic {
		t.Errorf("event = %+v, want published on %s", ev, msg.topic)
	}
}

func TestPublish_RejectedLocally(t *testing.T) {
	fc := &fakeClient{publishToken: func() *fakeToken { return completedToken(mqtt.ErrNotConnected) }}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if p.Publish("t", domain.Reading{}) {
		t.Fatal("Publish() = true, want false")
	}
	select {
	case ev := <-p.Events():
		t.Errorf("unexpected event for a local rejection: %+v", ev)
	default:
	}
}

func TestPublish_DoesNotWaitForAck(t *testing.T) {
	tok := pendingToken()
	fc := &fakeClient{open: true, publishToken: func() *fakeToken { return tok }}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if !p.Publish("t", domain.Reading{}) {
		t.Fatal("Publish() = false, want true while ack is pending")
	}
	select {
	case ev := <-p.Events():
		t.Fatalf("unexpected event before ack: %+v", ev)
	default:
	}

	tok.complete(errors.New("puback timeout"))
	if ev := nextEvent(t, p); ev.Kind != EventPublishFailed {
		t.Errorf("event = %+v, want publish_failed", ev)
	}
}

func TestPublish_UnencodablePayload(t *testing.T) {
	fc := &fakeClient{open: true}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if p.Publish("t", make(chan int)) {
		t.Fatal("Publish() = true, want false")
	}
	if len(fc.published) != 0 {
		t.Errorf("published %d messages, want 0", len(fc.published))
	}
}

func TestConnect_Refused(t *testing.T) {
	fc := &fakeClient{connectToken: completedToken(errors.New("not authorized"))}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("Connect() error = nil, want refusal")
	}
	if ev := nextEvent(t, p); ev.Kind != EventConnectFailed {
		t.Errorf("event = %+v, want connect_failed", ev)
	}
}

func TestConnect_GraceWaitExpires(t *testing.T) {
	fc := &fakeClient{connectToken: pendingToken()}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	start := time.Now()
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v, want nil after grace wait", err)
	}
	if waited := time.Since(start); waited < testMQTT.ConnectWait {
		t.Errorf("returned after %v, want at least %v", waited, testMQTT.ConnectWait)
	}
}

func TestConnect_LateRefusalReported(t *testing.T) {
	tok := pendingToken()
	fc := &fakeClient{connectToken: tok}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v, want nil after grace wait", err)
	}
	refused := errors.New("connection refused")
	tok.complete(refused)

	ev := nextEvent(t, p)
	if ev.Kind != EventConnectFailed || !errors.Is(ev.Err, refused) {
		t.Errorf("event = %+v, want connect_failed with %v", ev, refused)
	}
}

func TestConnect_LateAckNoEvent(t *testing.T) {
	tok := pendingToken()
	fc := &fakeClient{connectToken: tok}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	tok.complete(nil)

	select {
	case ev := <-p.Events():
		t.Errorf("unexpected event after late ack: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnect_Cancelled(t *testing.T) {
	fc := &fakeClient{connectToken: pendingToken()}
	cfg := testMQTT
	cfg.ConnectWait = time.Minute
	p := NewWithClient(fc, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
}

func TestDisconnect_Once(t *testing.T) {
	fc := &fakeClient{}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	p.Disconnect()
	p.Disconnect()
	if fc.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", fc.disconnects)
	}
}

func TestDisconnect_NeverConnected(t *testing.T) {
	fc := &fakeClient{}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	p.Disconnect()
	if fc.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", fc.disconnects)
	}
}

func TestDisconnect_WhileConnecting(t *testing.T) {
	fc := &fakeClient{connectToken: pendingToken()}
	p := NewWithClient(fc, testMQTT, zerolog.Nop())

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	p.Disconnect()
	if fc.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1 while CONNACK is pending", fc.disconnects)
	}
}

func TestEventKindString(t *testing.T) {
	if got := EventConnectionLost.String(); got != "connection_lost" {
		t.Errorf("String() = %q, want connection_lost", got)
	}
}
