// Package app wires the database, the dispenser and its background workers
// together for the cmd entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/pillbox/pkg/arduino"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
)

// Options are the command line overrides shared by the binaries.
type Options struct {
	// DBPath is the database file; empty uses the default location
	DBPath string
	// Port overrides the serial port stored in the profile settings
	Port string
	// Simulate forces the simulated dispenser
	Simulate bool
	// Profile activates the named profile before loading configuration
	Profile string
}

// App is a running dispenser service.
type App struct {
	DB        *db.DB
	Config    *db.Config
	Dispenser *device.Dispenser
	Poller    *device.AutoClosePoller

	journal sync.WaitGroup
	once    sync.Once
}

// Start opens and prepares the database, connects the dispenser (falling
// back to the simulation), and starts the auto-close poller and the command
// journal.
func Start(ctx context.Context, opts Options) (*App, error) {
	database, err := db.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	cfg, err := prepare(ctx, database, opts.Profile)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	settings := cfg.Dispenser
	log.Info().
		Str("profile", cfg.Profile.Name).
		Str("timezone", cfg.Timezone()).
		Str("api_address", cfg.APIAddress()).
		Dur("auto_close_delay", settings.AutoCloseDelay).
		Msg("Configuration loaded")

	var link device.Link
	if opts.Simulate || settings.Simulate {
		log.Info().Msg("Simulation mode enabled")
	} else {
		link = arduino.NewSession(SessionConfig(settings, opts.Port))
	}

	dispenser := device.ConnectOrSimulate(ctx, link, device.Options{
		AutoCloseDelay:     settings.AutoCloseDelay,
		DefaultCompartment: settings.DefaultCompartment,
	})

	a := &App{
		DB:        database,
		Config:    cfg,
		Dispenser: dispenser,
		Poller:    device.NewAutoClosePoller(dispenser, settings.PollInterval),
	}

	a.startJournal()
	a.Poller.Start(ctx)

	return a, nil
}

func prepare(ctx context.Context, database *db.DB, profile string) (*db.Config, error) {
	if err := database.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check bootstrap status: %w", err)
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("failed to bootstrap database: %w", err)
		}
	}

	if profile != "" {
		if err := activateProfile(ctx, database.Profiles(), profile); err != nil {
			return nil, err
		}
	}

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// activateProfile makes the profile called name the active one.
func activateProfile(ctx context.Context, profiles db.ProfileStore, name string) error {
	all, err := profiles.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	for _, p := range all {
		if p.Name != name {
			continue
		}
		if p.IsActive {
			return nil
		}
		if err := profiles.SetActive(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to activate profile %q: %w", name, err)
		}
		log.Info().Str("profile", name).Msg("Profile activated")
		return nil
	}
	return fmt.Errorf("%w: %q", db.ErrProfileNotFound, name)
}

// SessionConfig maps stored settings onto a serial session configuration.
// A non-empty port overrides the stored one.
func SessionConfig(s *db.DispenserSettings, port string) arduino.Config {
	cfg := arduino.DefaultConfig()
	if s.Port != "" {
		cfg.Port = s.Port
	}
	if port != "" {
		cfg.Port = port
	}
	if s.BaudRate > 0 {
		cfg.BaudRate = s.BaudRate
	}
	if s.ReadTimeout > 0 {
		cfg.ReadTimeout = s.ReadTimeout
	}
	if s.InitDelay >= 0 {
		cfg.InitDelay = s.InitDelay
	}
	if s.AckTimeout > 0 {
		cfg.AckTimeout = s.AckTimeout
	}
	return cfg
}

// journalBuffer absorbs bursts of events while a SQLite write is slow.
const journalBuffer = 1024

// startJournal records every dispenser event in the command log until the
// dispenser shuts down.
func (a *App) startJournal() {
	events := a.Dispenser.SubscribeBuffered(journalBuffer)
	store := a.DB.CommandLog()
	profileID := a.Config.Profile.ID

	a.journal.Add(1)
	go func() {
		defer a.journal.Done()
		for evt := range events {
			if err := store.Record(context.Background(), profileID, evt); err != nil {
				log.Error().Err(err).Str("event", evt.Type).Msg("Failed to journal dispenser event")
			}
		}
	}()
}

// Close stops the poller, releases the dispenser, drains the journal and
// closes the database. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		a.Poller.Stop()
		a.Dispenser.Shutdown()
		a.journal.Wait()
		err = errors.Join(err, a.DB.Close())
	})
	return err
}
