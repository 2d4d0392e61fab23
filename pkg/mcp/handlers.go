package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	controllerStatus := "disconnected"
	switch {
	case s.controller.Status().Simulated:
		controllerStatus = "simulated"
	case s.controller.IsConnected():
		controllerStatus = "connected"
	}

	status := "healthy"
	if controllerStatus != "connected" {
		status = "degraded"
	}

	out := GetHealthOutput{
		Status:     status,
		Controller: controllerStatus,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(StatusToOutput(s.controller.Status()))), nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := s.controlPayload(request, device.ActionOpen)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	compartment := compartmentOf(payload)
	scheduled, _ := payload["scheduled"].(bool)

	res := s.controller.Open(ctx, compartment, scheduled)
	if !res.Succeeded && !res.AlreadyOpen {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open compartment %d: %s", compartment, res.Err)), nil
	}

	out := CommandOutput{
		Succeeded:   res.Succeeded,
		AlreadyOpen: res.AlreadyOpen,
		Message:     fmt.Sprintf("Compartment %d opened", compartment),
		Status:      StatusToOutput(s.controller.Status()),
	}
	if res.AlreadyOpen {
		out.Message = "Dispenser is already open"
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := s.controlPayload(request, device.ActionClose)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	compartment := compartmentOf(payload)

	res := s.controller.Close(ctx, compartment)
	if !res.Succeeded && !res.AlreadyClosed {
		return mcp.NewToolResultError(fmt.Sprintf("failed to close compartment %d: %s", compartment, res.Err)), nil
	}

	out := CommandOutput{
		Succeeded:     res.Succeeded,
		AlreadyClosed: res.AlreadyClosed,
		Message:       fmt.Sprintf("Compartment %d closed", compartment),
		Status:        StatusToOutput(s.controller.Status()),
	}
	if res.AlreadyClosed {
		out.Message = "Dispenser is already closed"
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleCheckAutoClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := CheckAutoCloseOutput{
		Closed: s.controller.CheckAutoClose(ctx),
		Status: StatusToOutput(s.controller.Status()),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("command history is not available"), nil
	}

	args := map[string]any{}
	if v, ok := request.GetArguments()["limit"]; ok && v != nil {
		args["limit"] = v
	}
	if err := s.validate(schema.HistoryQuery, args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := db.DefaultHistoryLimit
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}

	entries, err := s.history.Recent(ctx, s.profileID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list command history: %s", err)), nil
	}

	out := ListHistoryOutput{
		Entries: entries,
		Count:   len(entries),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

// controlPayload builds a control payload from tool arguments and checks it
// against schema.ControlRequest.
func (s *Server) controlPayload(request mcp.CallToolRequest, action device.Action) (map[string]any, error) {
	payload := map[string]any{"action": string(action)}
	for _, key := range []string{"compartment", "scheduled"} {
		if v, ok := request.GetArguments()[key]; ok && v != nil {
			payload[key] = v
		}
	}
	if action == device.ActionClose {
		delete(payload, "scheduled")
	}

	if err := s.validate(schema.ControlRequest, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Server) validate(schemaDoc json.RawMessage, payload map[string]any) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Validate(schemaDoc, payload); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func compartmentOf(payload map[string]any) int {
	if v, ok := payload["compartment"].(float64); ok {
		return int(v)
	}
	return device.DefaultCompartment
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
