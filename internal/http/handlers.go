package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/domain"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/repository"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/service"
)

type createDeviceRequest struct {
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type createSensorRequest struct {
	SensorName string   `json:"sensorName"`
	SensorType string   `json:"sensorType"`
	Unit       string   `json:"unit"`
	MinValue   *float64 `json:"minValue"`
	MaxValue   *float64 `json:"maxValue"`
}

// Register mounts the registry routes. Every payload is wrapped as
// {"data": ...}; errors as {"error": ...}.
func Register(app *fiber.App, svcs *service.Services) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	app.Get("/devices", func(c *fiber.Ctx) error {
		items, err := svcs.Devices.List(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"data": items})
	})

	app.Post("/devices", func(c *fiber.Ctx) error {
		var req createDeviceRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		d := &domain.Device{
			Name:        req.DeviceName,
			Type:        req.DeviceType,
			Location:    req.Location,
			Description: req.Description,
		}
		if err := svcs.Devices.Create(c.UserContext(), d); err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": d})
	})

	g := app.Group("/sensors/devices/:id<int>")
	g.Get("/sensors", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid device id"})
		}
		items, err := svcs.Sensors.List(c.UserContext(), int64(id))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"data": items})
	})

	g.Post("/sensors", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid device id"})
		}
		var req createSensorRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		s := &domain.Sensor{
			DeviceID: int64(id),
			Name:     req.SensorName,
			Type:     req.SensorType,
			Unit:     req.Unit,
			MinValue: req.MinValue,
			MaxValue: req.MaxValue,
		}
		if err := svcs.Sensors.Create(c.UserContext(), s); err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": s})
	})
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalid):
		status = fiber.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}
