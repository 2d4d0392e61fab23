package types

import (
	"time"

	"github.com/urmzd/pillbox/pkg/db"
)

// --- Request DTOs ---

// ControlRequest is the request body for POST /dispenser/control
type ControlRequest struct {
	// Compartment defaults to 1 when omitted
	Compartment int    `json:"compartment" example:"1"`
	Action      string `json:"action" example:"open" enums:"open,close"`
	// Scheduled arms the auto-close timer on open
	Scheduled bool `json:"scheduled"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status     string    `json:"status"`
	Controller string    `json:"controller"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusResponse is returned from GET /dispenser/status
type StatusResponse struct {
	IsOpen         bool       `json:"is_open"`
	AutoCloseArmed bool       `json:"auto_close_armed"`
	AutoCloseAt    *time.Time `json:"auto_close_at,omitempty"`
	Connected      bool       `json:"connected"`
	Simulated      bool       `json:"simulated"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ControlResponse is returned from POST /dispenser/control
type ControlResponse struct {
	Succeeded     bool           `json:"succeeded"`
	AlreadyOpen   bool           `json:"already_open,omitempty"`
	AlreadyClosed bool           `json:"already_closed,omitempty"`
	Message       string         `json:"message,omitempty"`
	Status        StatusResponse `json:"status"`
}

// AutoCloseCheckResponse is returned from POST /dispenser/auto-close/check
type AutoCloseCheckResponse struct {
	Closed bool           `json:"closed"`
	Status StatusResponse `json:"status"`
}

// HistoryResponse is returned from GET /dispenser/history
type HistoryResponse struct {
	Entries []*db.CommandLogEntry `json:"entries"`
	Count   int                   `json:"count"`
}
