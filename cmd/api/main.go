package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/pillbox/pkg/api"
	"github.com/urmzd/pillbox/pkg/app"
	"github.com/urmzd/pillbox/pkg/device/schema"

	_ "github.com/urmzd/pillbox/docs"
)

// @title           Pillbox API
// @version         1.0
// @description     REST API for controlling a medication dispenser

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/pillbox/pillbox.db)")
	serialPort := flag.String("port", "", "Dispenser serial port (default: stored setting, else COM3 or /dev/ttyACM0)")
	simulate := flag.Bool("simulate", false, "Use the simulated dispenser instead of the serial port")
	profile := flag.String("profile", "", "Activate the named profile (default: the active profile)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := app.Start(ctx, app.Options{DBPath: *dbPath, Port: *serialPort, Simulate: *simulate, Profile: *profile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start dispenser service")
	}

	router := api.NewRouter(
		service.Dispenser,
		service.Dispenser,
		schema.NewValidator(),
		service.DB.CommandLog(),
		service.Config.Profile.ID,
	)

	addr := service.Config.APIAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down API server")
	}

	if err := service.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close dispenser service")
	}
}
