// Package simulator drives one simulated sensor session: provision, connect,
// then generate and publish readings until a limit or an interrupt.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/publisher"
)

// Provisioner resolves the device and sensor a run publishes for.
type Provisioner interface {
	Health(ctx context.Context) error
	FindOrCreateDevice(ctx context.Context, name, deviceType, location string) (int64, error)
	FindOrCreateSensor(ctx context.Context, deviceID int64, name, sensorType, unit string) (int64, error)
}

type Publisher interface {
	Connect(ctx context.Context) error
	Publish(topic string, payload any) bool
	Disconnect()
	Events() <-chan publisher.Event
}

// Dialer builds the publisher once the identifiers are known; the broker
// session name is derived from them.
type Dialer func(deviceID, sensorID int64) Publisher

type Generator interface {
	Next() float64
}

// Options are the per-run settings. Duration and Count are mutually
// exclusive; zero disables either limit.
type Options struct {
	Device      config.Device
	Sensor      config.Sensor
	Interval    time.Duration
	Duration    time.Duration
	Count       int
	TopicFormat string
	// DrainWait is slept after a run that ends on its own so in-flight
	// QoS 1 messages can complete before disconnect.
	DrainWait time.Duration
}

// OptionsFromConfig maps loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Device:      cfg.Device,
		Sensor:      cfg.Sensor,
		Interval:    cfg.Sim.Interval,
		Duration:    cfg.Sim.Duration,
		Count:       cfg.Sim.Count,
		TopicFormat: cfg.Sim.TopicFormat,
		DrainWait:   cfg.Sim.DrainWait,
	}
}

type Runner struct {
	opts  Options
	prov  Provisioner
	dial  Dialer
	gen   Generator
	clock Clock
	log   zerolog.Logger

	state     atomic.Int32
	deviceID  int64
	sensorID  int64
	attempted int
	sent      int
}

// New returns a Runner. A nil prov skips the health check and provisioning
// and publishes for opts.Device.ID and opts.Sensor.ID as given.
func New(opts Options, prov Provisioner, dial Dialer, gen Generator, logger zerolog.Logger) *Runner {
	return &Runner{
		opts:     opts,
		prov:     prov,
		dial:     dial,
		gen:      gen,
		clock:    realClock{},
		log:      logger,
		deviceID: opts.Device.ID,
		sensorID: opts.Sensor.ID,
	}
}

// WithClock replaces the wall clock, mainly for tests.
func (r *Runner) WithClock(c Clock) *Runner {
	r.clock = c
	return r
}

func (r *Runner) State() State    { return State(r.state.Load()) }
func (r *Runner) DeviceID() int64 { return r.deviceID }
func (r *Runner) SensorID() int64 { return r.sensorID }

// Attempted is the number of publish calls made; Sent counts the ones the
// client accepted.
func (r *Runner) Attempted() int { return r.attempted }
func (r *Runner) Sent() int      { return r.sent }

// Run executes the session. Cancelling ctx stops it cleanly and is not an
// error. Any failure before the publish loop aborts the run with an error;
// the broker connection, once dialed, is always closed.
func (r *Runner) Run(ctx context.Context) error {
	r.setState(StateInit)
	defer r.setState(StateDone)

	if r.prov != nil {
		if err := r.provision(ctx); err != nil {
			return err
		}
	}
	r.setState(StateProvisioned)

	log := r.log.With().Int64("device_id", r.deviceID).Int64("sensor_id", r.sensorID).Logger()

	pub := r.dial(r.deviceID, r.sensorID)
	stopWatch := r.watch(pub.Events(), log)
	defer stopWatch()
	defer func() {
		r.setState(StateStopping)
		pub.Disconnect()
	}()

	if err := pub.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	r.setState(StateConnected)

	topic := publisher.Topic(r.opts.TopicFormat, r.deviceID, r.sensorID)
	log.Info().
		Str("topic", topic).
		Dur("interval", r.opts.Interval).
		Dur("duration", r.opts.Duration).
		Int("count", r.opts.Count).
		Msg("starting simulation")

	r.setState(StateRunning)
	interrupted := r.loop(ctx, pub, topic, log)

	if !interrupted && r.opts.DrainWait > 0 {
		_ = r.clock.Sleep(ctx, r.opts.DrainWait)
	}
	if interrupted {
		log.Info().Msg("stopping simulator")
	}
	log.Info().Int("sent", r.sent).Int("attempted", r.attempted).Msg("simulation complete")
	return nil
}

func (r *Runner) provision(ctx context.Context) error {
	r.log.Info().Msg("checking api connection")
	if err := r.prov.Health(ctx); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	r.setState(StateHealthChecked)

	d := r.opts.Device
	deviceID, err := r.prov.FindOrCreateDevice(ctx, d.Name, d.Type, d.Location)
	if err != nil {
		return fmt.Errorf("setup device: %w", err)
	}
	s := r.opts.Sensor
	sensorID, err := r.prov.FindOrCreateSensor(ctx, deviceID, s.Name, s.Type, s.Unit)
	if err != nil {
		return fmt.Errorf("setup sensor: %w", err)
	}
	r.deviceID, r.sensorID = deviceID, sensorID
	return nil
}

// loop publishes until a limit is reached or ctx is done. It reports whether
// it stopped because of ctx.
func (r *Runner) loop(ctx context.Context, pub Publisher, topic string, log zerolog.Logger) bool {
	start := r.clock.Now()
	for {
		if ctx.Err() != nil {
			return true
		}
		if r.opts.Duration > 0 && r.clock.Now().Sub(start) >= r.opts.Duration {
			return false
		}

		value := r.gen.Next()
		r.attempted++
		if pub.Publish(topic, domain.NewReading(value, r.clock.Now())) {
			r.sent++
			log.Info().Float64("value", value).Int("n", r.attempted).Msg("reading published")
		} else {
			log.Error().Float64("value", value).Str("topic", topic).Msg("reading not published")
		}

		if r.opts.Count > 0 && r.attempted >= r.opts.Count {
			return false
		}
		if err := r.clock.Sleep(ctx, r.opts.Interval); err != nil {
			return true
		}
	}
}

// watch logs publisher events until the returned stop func is called. Stop
// flushes whatever is still buffered.
func (r *Runner) watch(events <-chan publisher.Event, log zerolog.Logger) func() {
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-events:
				logEvent(log, ev)
			case <-quit:
				for {
					select {
					case ev := <-events:
						logEvent(log, ev)
					default:
						return
					}
				}
			}
		}
	}()
	return func() {
		close(quit)
		wg.Wait()
	}
}

func logEvent(log zerolog.Logger, ev publisher.Event) {
	switch ev.Kind {
	case publisher.EventConnected:
		log.Info().Msg("mqtt session up")
	case publisher.EventConnectFailed:
		log.Error().Err(ev.Err).Msg("mqtt connect failed")
	case publisher.EventConnectionLost:
		log.Warn().Err(ev.Err).Msg("unexpected mqtt disconnection")
	case publisher.EventPublished:
		log.Debug().Str("topic", ev.Topic).Msg("broker acknowledged reading")
	case publisher.EventPublishFailed:
		log.Error().Err(ev.Err).Str("topic", ev.Topic).Msg("reading delivery failed")
	}
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.log.Debug().Stringer("state", s).Msg("state")
}
