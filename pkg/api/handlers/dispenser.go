package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/pillbox/pkg/api/types"
	"github.com/urmzd/pillbox/pkg/device"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

// maxControlBody bounds the control request body
const maxControlBody = 4 << 10

// DispenserHandler handles dispenser control and status endpoints
type DispenserHandler struct {
	controller device.Controller
	validator  *schema.Validator
}

// NewDispenserHandler creates a new dispenser handler
func NewDispenserHandler(controller device.Controller, validator *schema.Validator) *DispenserHandler {
	return &DispenserHandler{controller: controller, validator: validator}
}

// Status handles GET /dispenser/status
// @Summary      Get dispenser status
// @Description  Returns whether the dispenser is open and whether an auto-close is pending
// @Tags         dispenser
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /dispenser/status [get]
func (h *DispenserHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse(h.controller.Status()))
}

// Control handles POST /dispenser/control
// @Summary      Open or close the dispenser
// @Description  Opens or closes a compartment. A scheduled open is closed again automatically after the configured delay.
// @Tags         dispenser
// @Accept       json
// @Produce      json
// @Param        request  body      types.ControlRequest  true  "Command"
// @Success      200      {object}  types.ControlResponse
// @Failure      400      {object}  types.ErrorResponse    "Invalid request"
// @Failure      409      {object}  types.ControlResponse  "Already open or already closed"
// @Failure      502      {object}  types.ErrorResponse    "Dispenser rejected the command"
// @Failure      503      {object}  types.ErrorResponse    "Dispenser not connected"
// @Failure      504      {object}  types.ErrorResponse    "Dispenser did not acknowledge in time"
// @Router       /dispenser/control [post]
func (h *DispenserHandler) Control(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxControlBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	payload, err := h.validator.DecodeAndValidate(schema.ControlRequest, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	req := controlRequestFromPayload(payload)
	action, err := device.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	var (
		succeeded bool
		already   bool
		cmdErr    error
	)
	resp := types.ControlResponse{}

	switch action {
	case device.ActionOpen:
		res := h.controller.Open(ctx, req.Compartment, req.Scheduled)
		succeeded, already, cmdErr = res.Succeeded, res.AlreadyOpen, res.Err
		resp.AlreadyOpen = res.AlreadyOpen
	case device.ActionClose:
		res := h.controller.Close(ctx, req.Compartment)
		succeeded, already, cmdErr = res.Succeeded, res.AlreadyClosed, res.Err
		resp.AlreadyClosed = res.AlreadyClosed
	}

	resp.Succeeded = succeeded
	resp.Status = statusResponse(h.controller.Status())

	switch {
	case succeeded:
		c.JSON(http.StatusOK, resp)
	case already:
		resp.Message = cmdErr.Error()
		c.JSON(http.StatusConflict, resp)
	default:
		writeCommandError(c, cmdErr)
	}
}

// CheckAutoClose handles POST /dispenser/auto-close/check
// @Summary      Run the auto-close check now
// @Description  Closes the dispenser if a scheduled auto-close deadline has passed
// @Tags         dispenser
// @Produce      json
// @Success      200  {object}  types.AutoCloseCheckResponse
// @Router       /dispenser/auto-close/check [post]
func (h *DispenserHandler) CheckAutoClose(c *gin.Context) {
	closed := h.controller.CheckAutoClose(c.Request.Context())
	c.JSON(http.StatusOK, types.AutoCloseCheckResponse{
		Closed: closed,
		Status: statusResponse(h.controller.Status()),
	})
}

// controlRequestFromPayload reads a payload already checked against
// schema.ControlRequest.
func controlRequestFromPayload(payload map[string]any) types.ControlRequest {
	req := types.ControlRequest{Compartment: device.DefaultCompartment}
	if v, ok := payload["compartment"].(float64); ok {
		req.Compartment = int(v)
	}
	req.Action, _ = payload["action"].(string)
	req.Scheduled, _ = payload["scheduled"].(bool)
	return req
}

func writeCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrInvalidCompartment), errors.Is(err, device.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "dispenser_disconnected",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrCommandTimeout):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Dispenser did not acknowledge the command in time",
		})
	case errors.Is(err, device.ErrCommandRejected):
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "command_rejected",
			Message: err.Error(),
		})
	default:
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "dispenser_error",
			Message: msg,
		})
	}
}

func statusResponse(s device.Status) types.StatusResponse {
	resp := types.StatusResponse{
		IsOpen:         s.IsOpen,
		AutoCloseArmed: s.AutoCloseArmed,
		Connected:      s.Connected,
		Simulated:      s.Simulated,
		Timestamp:      time.Now(),
	}
	if s.AutoCloseArmed {
		at := s.AutoCloseAt
		resp.AutoCloseAt = &at
	}
	return resp
}
