package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
)

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Repos)(nil)
)

func TestMemory_Devices(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	d := &domain.Device{Name: "Lab", Type: "Environmental Monitor"}
	if err := m.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.ID != 1 {
		t.Errorf("ID = %d, want 1", d.ID)
	}

	got, err := m.GetDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Lab" {
		t.Errorf("Name = %q, want Lab", got.Name)
	}

	if _, err := m.GetDevice(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice(99) error = %v, want ErrNotFound", err)
	}

	list, _ := m.ListDevices(ctx)
	list[0].Name = "mutated"
	again, _ := m.ListDevices(ctx)
	if again[0].Name != "Lab" {
		t.Error("ListDevices() returned a slice aliasing the store")
	}
}

func TestMemory_SensorsScopedToDevice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreateSensor(ctx, &domain.Sensor{DeviceID: 1, Name: "a", Type: "Temperature"}); err != nil {
		t.Fatalf("CreateSensor() error = %v", err)
	}
	if err := m.CreateSensor(ctx, &domain.Sensor{DeviceID: 2, Name: "b", Type: "Humidity"}); err != nil {
		t.Fatalf("CreateSensor() error = %v", err)
	}

	got, err := m.ListSensors(ctx, 1)
	if err != nil {
		t.Fatalf("ListSensors() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "a" {
		t.Errorf("ListSensors(1) = %+v, want only sensor a", got)
	}
	if empty, _ := m.ListSensors(ctx, 3); len(empty) != 0 {
		t.Errorf("ListSensors(3) = %+v, want empty", empty)
	}
}
