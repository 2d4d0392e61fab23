package mcp

import (
	"time"

	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status     string `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	Controller string `json:"controller" jsonschema:"description=Dispenser link status (connected/simulated/disconnected)"`
	Timestamp  string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// DispenserStatus is the dispenser state as reported by tools
type DispenserStatus struct {
	IsOpen         bool   `json:"is_open" jsonschema:"description=Whether the dispenser is open"`
	AutoCloseArmed bool   `json:"auto_close_armed" jsonschema:"description=Whether an automatic close is pending"`
	AutoCloseAt    string `json:"auto_close_at,omitempty" jsonschema:"description=ISO8601 time of the pending automatic close"`
	Connected      bool   `json:"connected" jsonschema:"description=Whether the dispenser link is connected"`
	Simulated      bool   `json:"simulated" jsonschema:"description=Whether the dispenser is simulated"`
}

// CommandOutput is the output for open_dispenser and close_dispenser
type CommandOutput struct {
	Succeeded     bool            `json:"succeeded" jsonschema:"description=Whether the dispenser acknowledged the command"`
	AlreadyOpen   bool            `json:"already_open,omitempty" jsonschema:"description=Open was refused because the dispenser is open"`
	AlreadyClosed bool            `json:"already_closed,omitempty" jsonschema:"description=Close was refused because the dispenser is closed"`
	Message       string          `json:"message" jsonschema:"description=Status message"`
	Status        DispenserStatus `json:"status" jsonschema:"description=Dispenser state after the command"`
}

// CheckAutoCloseOutput is the output for the check_auto_close tool
type CheckAutoCloseOutput struct {
	Closed bool            `json:"closed" jsonschema:"description=Whether the check closed the dispenser"`
	Status DispenserStatus `json:"status" jsonschema:"description=Dispenser state after the check"`
}

// ListHistoryOutput is the output for the list_command_history tool
type ListHistoryOutput struct {
	Entries []*db.CommandLogEntry `json:"entries" jsonschema:"description=Journaled commands, newest first"`
	Count   int                   `json:"count" jsonschema:"description=Number of entries returned"`
}

// StatusToOutput converts a device.Status for tool output
func StatusToOutput(s device.Status) DispenserStatus {
	out := DispenserStatus{
		IsOpen:         s.IsOpen,
		AutoCloseArmed: s.AutoCloseArmed,
		Connected:      s.Connected,
		Simulated:      s.Simulated,
	}
	if s.AutoCloseArmed {
		out.AutoCloseAt = s.AutoCloseAt.UTC().Format(time.RFC3339)
	}
	return out
}
