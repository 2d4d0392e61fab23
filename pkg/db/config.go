package db

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// DefaultAPIAddress is used when a profile has no API server row.
const DefaultAPIAddress = "0.0.0.0:8080"

// Config is everything the service reads from the active profile.
type Config struct {
	Profile   *Profile
	APIServer *APIServer
	// Dispenser is never nil after ActiveConfig
	Dispenser *DispenserSettings
}

func (c *Config) APIAddress() string {
	if c.APIServer == nil {
		return DefaultAPIAddress
	}
	return c.APIServer.Address()
}

func (c *Config) Timezone() string {
	if c.Profile == nil || c.Profile.Timezone == "" {
		return "UTC"
	}
	return c.Profile.Timezone
}

// ActiveConfig loads the configuration of the active profile. A missing API
// server row leaves APIServer nil; missing dispenser settings fall back to
// DefaultDispenserSettings.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	profile, err := db.Profiles().GetActive(ctx)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return nil, ErrNoActiveProfile
	case err != nil:
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	cfg := &Config{Profile: profile}

	cfg.APIServer, err = db.APIServers().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}

	cfg.Dispenser, err = db.DispenserSettings().Get(ctx, profile.ID)
	switch {
	case errors.Is(err, ErrDispenserSettingsNotFound):
		cfg.Dispenser = DefaultDispenserSettings(profile.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to get dispenser settings: %w", err)
	}

	return cfg, nil
}
