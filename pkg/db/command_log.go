package db

import (
	"context"
	"fmt"
	"time"

	"github.com/urmzd/pillbox/pkg/device"
)

// CommandLogEntry is one journaled dispenser event.
type CommandLogEntry struct {
	ID          string    `json:"id"`
	ProfileID   int64     `json:"-"`
	EventType   string    `json:"event_type"`
	Compartment int       `json:"compartment"`
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	Scheduled   bool      `json:"scheduled"`
	Simulated   bool      `json:"simulated"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CommandLogStore journals dispenser events.
type CommandLogStore interface {
	Record(ctx context.Context, profileID int64, evt device.Event) error
	Recent(ctx context.Context, profileID int64, limit int) ([]*CommandLogEntry, error)
}

// CommandLog returns a CommandLogStore for this database.
func (db *DB) CommandLog() CommandLogStore {
	return &commandLogStore{db: db}
}

type commandLogStore struct {
	db *DB
}

// DefaultHistoryLimit caps history queries that do not ask for a size.
const DefaultHistoryLimit = 50

// occurredAtLayout is fixed width so that text ordering matches time ordering.
const occurredAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *commandLogStore) Record(ctx context.Context, profileID int64, evt device.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_log (id, profile_id, event_type, compartment, action, source,
		    scheduled, simulated, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.ID, profileID, evt.Type, evt.Compartment, string(evt.Action), evt.Source,
		evt.Scheduled, evt.Simulated, evt.Error, evt.Timestamp.UTC().Format(occurredAtLayout))
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

func (s *commandLogStore) Recent(ctx context.Context, profileID int64, limit int) ([]*CommandLogEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, event_type, compartment, action, source, scheduled, simulated, error, occurred_at
		FROM command_log WHERE profile_id = ?
		ORDER BY occurred_at DESC, rowid DESC
		LIMIT ?
	`, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*CommandLogEntry, 0)
	for rows.Next() {
		e := &CommandLogEntry{}
		var occurredAt string
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.EventType, &e.Compartment, &e.Action, &e.Source,
			&e.Scheduled, &e.Simulated, &e.Error, &occurredAt); err != nil {
			return nil, err
		}
		e.OccurredAt, _ = time.Parse(occurredAtLayout, occurredAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
