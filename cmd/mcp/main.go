package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/pillbox/pkg/app"
	"github.com/urmzd/pillbox/pkg/device/schema"
	pillboxmcp "github.com/urmzd/pillbox/pkg/mcp"
)

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/pillbox/pillbox.db)")
	serialPort := flag.String("port", "", "Dispenser serial port (default: stored setting, else COM3 or /dev/ttyACM0)")
	simulate := flag.Bool("simulate", false, "Use the simulated dispenser instead of the serial port")
	profile := flag.String("profile", "", "Activate the named profile (default: the active profile)")
	flag.Parse()

	service, err := app.Start(context.Background(), app.Options{DBPath: *dbPath, Port: *serialPort, Simulate: *simulate, Profile: *profile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start dispenser service")
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close dispenser service")
		}
	}()

	mcpServer := pillboxmcp.NewServer(
		service.Dispenser,
		schema.NewValidator(),
		service.DB.CommandLog(),
		service.Config.Profile.ID,
	)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
