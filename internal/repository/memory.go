package repository

import (
	"context"
	"sync"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
)

// Memory is a Store that lives for the process. IDs start at 1.
type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	devices []domain.Device
	sensors map[int64][]domain.Sensor
}

func NewMemory() *Memory {
	return &Memory{sensors: map[int64][]domain.Sensor{}}
}

func (m *Memory) ListDevices(context.Context) ([]domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *Memory) GetDevice(_ context.Context, id int64) (*domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.devices {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateDevice(_ context.Context, d *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	m.devices = append(m.devices, *d)
	return nil
}

func (m *Memory) ListSensors(_ context.Context, deviceID int64) ([]domain.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Sensor, len(m.sensors[deviceID]))
	copy(out, m.sensors[deviceID])
	return out, nil
}

func (m *Memory) CreateSensor(_ context.Context, s *domain.Sensor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.sensors[s.DeviceID] = append(m.sensors[s.DeviceID], *s)
	return nil
}
