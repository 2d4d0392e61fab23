package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrDispenserSettingsNotFound = errors.New("dispenser settings not found")

// DispenserSettings holds the serial link and timing parameters of a profile.
type DispenserSettings struct {
	ID        int64
	ProfileID int64
	// Port is the serial device path; empty means the platform default
	Port               string
	BaudRate           int
	ReadTimeout        time.Duration
	InitDelay          time.Duration
	AckTimeout         time.Duration
	AutoCloseDelay     time.Duration
	DefaultCompartment int
	PollInterval       time.Duration
	// Simulate skips the serial port entirely
	Simulate  bool
	UpdatedAt time.Time
}

// DefaultDispenserSettings returns the factory settings for a profile.
func DefaultDispenserSettings(profileID int64) *DispenserSettings {
	return &DispenserSettings{
		ProfileID:          profileID,
		BaudRate:           9600,
		ReadTimeout:        time.Second,
		InitDelay:          2 * time.Second,
		AckTimeout:         5 * time.Second,
		AutoCloseDelay:     60 * time.Second,
		DefaultCompartment: 1,
		PollInterval:       5 * time.Second,
	}
}

// DispenserSettingsStore reads and writes dispenser settings.
type DispenserSettingsStore interface {
	Get(ctx context.Context, profileID int64) (*DispenserSettings, error)
	Save(ctx context.Context, s *DispenserSettings) error
}

// DispenserSettings returns a DispenserSettingsStore for this database.
func (db *DB) DispenserSettings() DispenserSettingsStore {
	return &dispenserSettingsStore{db: db}
}

type dispenserSettingsStore struct {
	db *DB
}

func (s *dispenserSettingsStore) Get(ctx context.Context, profileID int64) (*DispenserSettings, error) {
	ds := &DispenserSettings{}
	var readMS, initMS, ackMS, autoCloseS, pollS int64
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, port, baud_rate, read_timeout_ms, init_delay_ms, ack_timeout_ms,
		       auto_close_delay_s, default_compartment, poll_interval_s, simulate, updated_at
		FROM dispenser_settings WHERE profile_id = ?
	`, profileID).Scan(&ds.ID, &ds.ProfileID, &ds.Port, &ds.BaudRate, &readMS, &initMS, &ackMS,
		&autoCloseS, &ds.DefaultCompartment, &pollS, &ds.Simulate, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDispenserSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	ds.ReadTimeout = time.Duration(readMS) * time.Millisecond
	ds.InitDelay = time.Duration(initMS) * time.Millisecond
	ds.AckTimeout = time.Duration(ackMS) * time.Millisecond
	ds.AutoCloseDelay = time.Duration(autoCloseS) * time.Second
	ds.PollInterval = time.Duration(pollS) * time.Second
	ds.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return ds, nil
}

func (s *dispenserSettingsStore) Save(ctx context.Context, ds *DispenserSettings) error {
	return saveDispenserSettings(ctx, s.db, ds)
}

func saveDispenserSettings(ctx context.Context, e execer, ds *DispenserSettings) error {
	if ds.DefaultCompartment < 1 {
		return fmt.Errorf("default compartment must be positive, got %d", ds.DefaultCompartment)
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO dispenser_settings (profile_id, port, baud_rate, read_timeout_ms, init_delay_ms,
		    ack_timeout_ms, auto_close_delay_s, default_compartment, poll_interval_s, simulate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
		    port = excluded.port,
		    baud_rate = excluded.baud_rate,
		    read_timeout_ms = excluded.read_timeout_ms,
		    init_delay_ms = excluded.init_delay_ms,
		    ack_timeout_ms = excluded.ack_timeout_ms,
		    auto_close_delay_s = excluded.auto_close_delay_s,
		    default_compartment = excluded.default_compartment,
		    poll_interval_s = excluded.poll_interval_s,
		    simulate = excluded.simulate,
		    updated_at = datetime('now')
	`, ds.ProfileID, ds.Port, ds.BaudRate, ds.ReadTimeout.Milliseconds(), ds.InitDelay.Milliseconds(),
		ds.AckTimeout.Milliseconds(), int64(ds.AutoCloseDelay/time.Second), ds.DefaultCompartment,
		int64(ds.PollInterval/time.Second), ds.Simulate)
	if err != nil {
		return fmt.Errorf("failed to save dispenser settings: %w", err)
	}
	return nil
}
