package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the registry's device and sensor storage.
type Store interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDevice(ctx context.Context, id int64) (*domain.Device, error)
	CreateDevice(ctx context.Context, d *domain.Device) error
	ListSensors(ctx context.Context, deviceID int64) ([]domain.Sensor, error)
	CreateSensor(ctx context.Context, s *domain.Sensor) error
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sensors (
	id        BIGSERIAL PRIMARY KEY,
	device_id BIGINT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	type      TEXT NOT NULL,
	unit      TEXT NOT NULL DEFAULT '',
	min_value DOUBLE PRECISION,
	max_value DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS sensors_device_id_idx ON sensors(device_id);
`

// Repos is the Postgres-backed Store.
type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

// Migrate creates the tables if they do not exist yet.
func (r *Repos) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Repos) ListDevices(ctx context.Context) ([]domain.Device, error) {
	out := []domain.Device{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, name, type, location, description FROM devices ORDER BY id`)
	return out, err
}

func (r *Repos) GetDevice(ctx context.Context, id int64) (*domain.Device, error) {
	var d domain.Device
	err := r.db.GetContext(ctx, &d, `SELECT id, name, type, location, description FROM devices WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repos) CreateDevice(ctx context.Context, d *domain.Device) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO devices(name, type, location, description) VALUES ($1,$2,$3,$4) RETURNING id`,
		d.Name, d.Type, d.Location, d.Description).Scan(&d.ID)
}

func (r *Repos) ListSensors(ctx context.Context, deviceID int64) ([]domain.Sensor, error) {
	out := []domain.Sensor{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, device_id, name, type, unit, min_value, max_value FROM sensors WHERE device_id = $1 ORDER BY id`,
		deviceID)
	return out, err
}

func (r *Repos) CreateSensor(ctx context.Context, s *domain.Sensor) error {
	return r.db.QueryRowxContext(ctx,
		`INSERT INTO sensors(device_id, name, type, unit, min_value, max_value) VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		s.DeviceID, s.Name, s.Type, s.Unit, s.MinValue, s.MaxValue).Scan(&s.ID)
}
