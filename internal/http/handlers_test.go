package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/provision"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/repository"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/service"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestLogger(zerolog.Nop()))
	Register(app, service.New(repository.NewMemory()))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]json.RawMessage{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	status, _ := do(t, newApp(), nethttp.MethodGet, "/health", "")
	if status != nethttp.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

func TestDevices_CreateAndList(t *testing.T) {
	app := newApp()

	status, out := do(t, app, nethttp.MethodPost, "/devices",
		`{"deviceName":"Lab","deviceType":"Environmental Monitor","location":"Simulation Lab","description":"d"}`)
	if status != nethttp.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}
	var created struct {
		ID   int64  `json:"deviceId"`
		Name string `json:"deviceName"`
	}
	if err := json.Unmarshal(out["data"], &created); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if created.ID == 0 || created.Name != "Lab" {
		t.Errorf("created = %+v, want id and name Lab", created)
	}

	status, out = do(t, app, nethttp.MethodGet, "/devices", "")
	if status != nethttp.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	var list []map[string]any
	if err := json.Unmarshal(out["data"], &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0]["deviceName"] != "Lab" {
		t.Errorf("list = %v, want one device named Lab", list)
	}
}

func TestDevices_EmptyListIsArray(t *testing.T) {
	_, out := do(t, newApp(), nethttp.MethodGet, "/devices", "")
	if got := string(out["data"]); got != "[]" {
		t.Errorf("data = %s, want []", got)
	}
}

func TestDevices_CreateInvalid(t *testing.T) {
	status, out := do(t, newApp(), nethttp.MethodPost, "/devices", `{"deviceName":"Lab"}`)
	if status != nethttp.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if _, ok := out["error"]; !ok {
		t.Error("response has no error field")
	}
}

func TestSensors_UnknownDevice(t *testing.T) {
	status, _ := do(t, newApp(), nethttp.MethodGet, "/sensors/devices/42/sensors", "")
	if status != nethttp.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestSensors_CreateAndList(t *testing.T) {
	app := newApp()
	do(t, app, nethttp.MethodPost, "/devices", `{"deviceName":"Lab","deviceType":"x"}`)

	status, _ := do(t, app, nethttp.MethodPost, "/sensors/devices/1/sensors",
		`{"sensorName":"T","sensorType":"Temperature","unit":"°C","minValue":-10,"maxValue":50}`)
	if status != nethttp.StatusCreated {
		t.Fatalf("create status = %d, want 201", status)
	}

	status, out := do(t, app, nethttp.MethodGet, "/sensors/devices/1/sensors", "")
	if status != nethttp.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	var list []struct {
		ID       int64    `json:"sensorId"`
		DeviceID int64    `json:"deviceId"`
		Type     string   `json:"sensorType"`
		MaxValue *float64 `json:"maxValue"`
	}
	if err := json.Unmarshal(out["data"], &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].DeviceID != 1 || list[0].Type != "Temperature" {
		t.Fatalf("list = %+v, want one temperature sensor on device 1", list)
	}
	if list[0].MaxValue == nil || *list[0].MaxValue != 50 {
		t.Errorf("maxValue = %v, want 50", list[0].MaxValue)
	}
}

// TestProvisionAgainstRegistry runs the real provisioning client against the
// registry over a socket.
func TestProvisionAgainstRegistry(t *testing.T) {
	app := newApp()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	c := provision.New(config.API{URL: "http://" + ln.Addr().String(), Timeout: 2 * time.Second}, zerolog.Nop())
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	var ids [2][2]int64
	for i := range ids {
		dev, err := c.FindOrCreateDevice(ctx, "Lab", "Environmental Monitor", "Simulation Lab")
		if err != nil {
			t.Fatalf("run %d FindOrCreateDevice() error = %v", i, err)
		}
		sen, err := c.FindOrCreateSensor(ctx, dev, "Temperature Sensor", "Temperature", "°C")
		if err != nil {
			t.Fatalf("run %d FindOrCreateSensor() error = %v", i, err)
		}
		ids[i] = [2]int64{dev, sen}
	}
	if ids[0] != ids[1] {
		t.Errorf("second run resolved %v, want %v", ids[1], ids[0])
	}
}
