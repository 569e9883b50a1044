// Package provision finds or creates the simulated device and sensor through
// the monitoring backend's REST API.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
)

const (
	deviceDescription = "Simulated temperature monitoring device"
	sensorMinValue    = -10.0
	sensorMaxValue    = 50.0

	// maxErrorBody caps how much of an error response ends up in logs.
	maxErrorBody = 512
)

// sensorTypeHints are matched case-insensitively as substrings of an
// existing sensor's type.
var sensorTypeHints = []string{"temperature", "temp"}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func New(cfg config.API, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger,
	}
}

// envelope is the backend's response wrapper: {"data": ...}.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type createDeviceRequest struct {
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type createSensorRequest struct {
	SensorName string  `json:"sensorName"`
	SensorType string  `json:"sensorType"`
	Unit       string  `json:"unit"`
	MinValue   float64 `json:"minValue"`
	MaxValue   float64 `json:"maxValue"`
}

// Health succeeds only on HTTP 200 from {api}/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "health check", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ProtocolError{Op: "health check", Status: resp.StatusCode, Body: readBody(resp.Body)}
	}
	return nil
}

// FindOrCreateDevice returns the ID of the device named name, creating it
// when no device has exactly that name.
func (c *Client) FindOrCreateDevice(ctx context.Context, name, deviceType, location string) (int64, error) {
	var devices []domain.Device
	found, err := c.list(ctx, "list devices", "/devices", &devices)
	if err != nil {
		return 0, err
	}
	if found {
		for _, d := range devices {
			if d.Name == name {
				c.log.Info().Str("device", name).Int64("device_id", d.ID).Msg("found existing device")
				return d.ID, nil
			}
		}
	}

	c.log.Info().Str("device", name).Msg("creating device")
	var created domain.Device
	body := createDeviceRequest{
		DeviceName:  name,
		DeviceType:  deviceType,
		Location:    location,
		Description: deviceDescription,
	}
	if err := c.create(ctx, "create device", "/devices", body, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &ProtocolError{Op: "create device", Err: errors.New("response has no deviceId")}
	}
	c.log.Info().Str("device", name).Int64("device_id", created.ID).Msg("created device")
	return created.ID, nil
}

// FindOrCreateSensor returns the first sensor on deviceID whose type looks
// like a temperature sensor, creating one when there is none.
func (c *Client) FindOrCreateSensor(ctx context.Context, deviceID int64, name, sensorType, unit string) (int64, error) {
	path := fmt.Sprintf("/sensors/devices/%d/sensors", deviceID)

	var sensors []domain.Sensor
	found, err := c.list(ctx, "list sensors", path, &sensors)
	if err != nil {
		return 0, err
	}
	if found {
		for _, s := range sensors {
			if isTemperatureType(s.Type) {
				c.log.Info().Str("sensor", s.Name).Int64("sensor_id", s.ID).Msg("found existing temperature sensor")
				return s.ID, nil
			}
		}
	}

	c.log.Info().Int64("device_id", deviceID).Msg("creating temperature sensor")
	var created domain.Sensor
	body := createSensorRequest{
		SensorName: name,
		SensorType: sensorType,
		Unit:       unit,
		MinValue:   sensorMinValue,
		MaxValue:   sensorMaxValue,
	}
	if err := c.create(ctx, "create sensor", path, body, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &ProtocolError{Op: "create sensor", Err: errors.New("response has no sensorId")}
	}
	c.log.Info().Str("sensor", name).Int64("sensor_id", created.ID).Msg("created sensor")
	return created.ID, nil
}

func isTemperatureType(t string) bool {
	t = strings.ToLower(t)
	for _, hint := range sensorTypeHints {
		if strings.Contains(t, hint) {
			return true
		}
	}
	return false
}

// list GETs path and decodes the envelope's data array into out. A non-200
// answer is not an error: it reports found=false so the caller creates.
func (c *Client) list(ctx context.Context, op, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("lookup failed, will create")
		return false, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false, &ProtocolError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return true, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, &ProtocolError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return true, nil
}

// create POSTs body as JSON and decodes the created entity into out. The
// entity is read from the envelope's data field, or from the top level when
// the API answers without an envelope.
func (c *Client) create(ctx context.Context, op, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Err: err}
	}
	data := []byte(env.Data)
	if len(data) == 0 || string(data) == "null" {
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
