package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/pillbox/pkg/api/types"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

// HistoryHandler serves the command journal of the active profile
type HistoryHandler struct {
	store     db.CommandLogStore
	profileID int64
	validator *schema.Validator
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store db.CommandLogStore, profileID int64, validator *schema.Validator) *HistoryHandler {
	return &HistoryHandler{store: store, profileID: profileID, validator: validator}
}

// History handles GET /dispenser/history
// @Summary      List recent dispenser commands
// @Description  Returns journaled open/close/auto-close events, newest first
// @Tags         dispenser
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries (1-500, default 50)"
// @Success      200    {object}  types.HistoryResponse
// @Failure      400    {object}  types.ErrorResponse  "Invalid limit"
// @Failure      500    {object}  types.ErrorResponse  "Database error"
// @Router       /dispenser/history [get]
func (h *HistoryHandler) History(c *gin.Context) {
	query := map[string]any{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be an integer",
			})
			return
		}
		query["limit"] = float64(limit)
	}

	if err := h.validator.Validate(schema.HistoryQuery, query); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_limit",
			Message: err.Error(),
		})
		return
	}

	limit := db.DefaultHistoryLimit
	if v, ok := query["limit"].(float64); ok {
		limit = int(v)
	}

	entries, err := h.store.Recent(c.Request.Context(), h.profileID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "database_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}
