package domain

import "time"

type Device struct {
	ID          int64  `db:"id" json:"deviceId"`
	Name        string `db:"name" json:"deviceName"`
	Type        string `db:"type" json:"deviceType"`
	Location    string `db:"location" json:"location,omitempty"`
	Description string `db:"description" json:"description,omitempty"`
}

type Sensor struct {
	ID       int64    `db:"id" json:"sensorId"`
	DeviceID int64    `db:"device_id" json:"deviceId"`
	Name     string   `db:"name" json:"sensorName"`
	Type     string   `db:"type" json:"sensorType"`
	Unit     string   `db:"unit" json:"unit,omitempty"`
	MinValue *float64 `db:"min_value" json:"minValue,omitempty"`
	MaxValue *float64 `db:"max_value" json:"maxValue,omitempty"`
}

// Reading is the MQTT payload. It is never stored.
type Reading struct {
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// TimestampLayout renders UTC without a zone suffix and with microseconds,
// which is what the ingesting backend parses.
const TimestampLayout = "2006-01-02T15:04:05.000000"

func NewReading(value float64, at time.Time) Reading {
	return Reading{Value: value, Timestamp: at.UTC().Format(TimestampLayout)}
}
