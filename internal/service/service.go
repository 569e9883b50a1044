// Package service holds the registry's rules on top of a repository.Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/repository"
)

// ErrInvalid marks a request the registry refuses to store.
var ErrInvalid = errors.New("invalid request")

type Services struct {
	Devices *DeviceService
	Sensors *SensorService
}

func New(store repository.Store) *Services {
	return &Services{
		Devices: &DeviceService{store: store},
		Sensors: &SensorService{store: store},
	}
}

type DeviceService struct {
	store repository.Store
}

func (s *DeviceService) List(ctx context.Context) ([]domain.Device, error) {
	return s.store.ListDevices(ctx)
}

// Create stores a device. Names are not unique; finding an existing device
// by name is the client's job.
func (s *DeviceService) Create(ctx context.Context, d *domain.Device) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Type = strings.TrimSpace(d.Type)
	if d.Name == "" || d.Type == "" {
		return fmt.Errorf("%w: deviceName and deviceType are required", ErrInvalid)
	}
	return s.store.CreateDevice(ctx, d)
}

type SensorService struct {
	store repository.Store
}

// List returns the sensors of deviceID, or repository.ErrNotFound when the
// device does not exist.
func (s *SensorService) List(ctx context.Context, deviceID int64) ([]domain.Sensor, error) {
	if _, err := s.store.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.store.ListSensors(ctx, deviceID)
}

func (s *SensorService) Create(ctx context.Context, sn *domain.Sensor) error {
	sn.Name = strings.TrimSpace(sn.Name)
	sn.Type = strings.TrimSpace(sn.Type)
	if sn.Name == "" || sn.Type == "" {
		return fmt.Errorf("%w: sensorName and sensorType are required", ErrInvalid)
	}
	if sn.MinValue != nil && sn.MaxValue != nil && *sn.MinValue > *sn.MaxValue {
		return fmt.Errorf("%w: minValue is greater than maxValue", ErrInvalid)
	}
	if _, err := s.store.GetDevice(ctx, sn.DeviceID); err != nil {
		return err
	}
	return s.store.CreateSensor(ctx, sn)
}
