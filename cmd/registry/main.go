package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/config"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/http"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/repository"
	"github.com/ANIKETSHETTY47/iot-sensor-simulator/internal/service"
)

func main() {
	fs := pflag.NewFlagSet("registry", pflag.ExitOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("log-level", config.DefaultLogLevel, "log level")
	fs.String("addr", config.DefaultRegistryAddr, "listen address")
	fs.String("db-dsn", "", "Postgres DSN; empty keeps devices in memory")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repository.Store = repository.NewMemory()
	if cfg.Registry.DSN != "" {
		db, err := database.Connect(cfg.Registry.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()

		repos := repository.New(db)
		if err := repos.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("db migrate failed")
		}
		store = repos
		log.Info().Msg("using postgres store")
	} else {
		log.Info().Msg("using in-memory store")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(httpHandlers.RequestLogger(log.Logger))
	// The simulators default to an /api/v1 base URL; serve both roots.
	svcs := service.New(store)
	httpHandlers.Register(app, svcs)
	api := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(api, svcs)
	app.Mount("/api/v1", api)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.Registry.Addr).Msg("registry listening")
	if err := app.Listen(cfg.Registry.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
