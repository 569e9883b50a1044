package publisher

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	FormatDevices = "devices"
	FormatSensor  = "sensor"
)

// Topic derives the MQTT topic for a reading. Any format other than the two
// named ones is taken as a literal topic.
func Topic(format string, deviceID, sensorID int64) string {
	switch format {
	case FormatDevices:
		return fmt.Sprintf("devices/%d/sensors/%d/readings", deviceID, sensorID)
	case FormatSensor:
		return fmt.Sprintf("sensor/reading/%d/%d", deviceID, sensorID)
	}
	return format
}

// ReadingFilters subscribe to both topic shapes Topic produces.
var ReadingFilters = []string{
	"devices/+/sensors/+/readings",
	"sensor/reading/+/+",
}

// ParseTopic recovers the device and sensor IDs from a topic built with
// FormatDevices or FormatSensor.
func ParseTopic(topic string) (deviceID, sensorID int64, ok bool) {
	parts := strings.Split(topic, "/")
	var d, s string
	switch {
	case len(parts) == 5 && parts[0] == "devices" && parts[2] == "sensors" && parts[4] == "readings":
		d, s = parts[1], parts[3]
	case len(parts) == 4 && parts[0] == "sensor" && parts[1] == "reading":
		d, s = parts[2], parts[3]
	default:
		return 0, 0, false
	}
	var err error
	if deviceID, err = strconv.ParseInt(d, 10, 64); err != nil {
		return 0, 0, false
	}
	if sensorID, err = strconv.ParseInt(s, 10, 64); err != nil {
		return 0, 0, false
	}
	return deviceID, sensorID, true
}
