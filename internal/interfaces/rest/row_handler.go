package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// RowHandler serves row CRUD plus the distinct-values listing
type RowHandler struct {
	svc *services.ServiceManager
}

func NewRowHandler(svc *services.ServiceManager) *RowHandler {
	return &RowHandler{svc: svc}
}

// List handles GET /api/tables/:tableId/rows
func (h *RowHandler) List(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	opts := models.ListOptions{
		Filters: c.QueryMap("filter"),
		Sort:    c.Query("sort"),
		Dir:     c.Query("dir"),
		Page:    page,
		Limit:   limit,
	}

	rows, pageInfo, err := h.svc.Rows.List(c.Request.Context(), tableID, opts, user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":       rows,
		"pagination": pageInfo,
	})
}

// Create handles POST /api/tables/:tableId/rows. A JSON object creates one
// row; a JSON array creates rows in bulk.
func (h *RowHandler) Create(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	var raw json.RawMessage
	if !BindJSON(c, &raw) {
		return
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []models.RowData
		if err := json.Unmarshal(raw, &items); err != nil {
			RespondAppError(c, errors.NewValidationError("body", err.Error()))
			return
		}

		rows, err := h.svc.Rows.CreateMany(c.Request.Context(), tableID, items, user)
		if err != nil {
			RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"rows":  rows,
			"count": len(rows),
		})
		return
	}

	var data models.RowData
	if err := json.Unmarshal(raw, &data); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	HandleCreatedEnvelope(c, "row", func() (interface{}, error) {
		return h.svc.Rows.Create(c.Request.Context(), tableID, data, user)
	})
}

// Get handles GET /api/tables/:tableId/rows/:rowId
func (h *RowHandler) Get(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	rowID := c.Param("rowId")

	HandleGetEnvelope(c, "row", func() (interface{}, error) {
		return h.svc.Rows.Get(c.Request.Context(), tableID, rowID, user)
	})
}

// Update handles PUT /api/tables/:tableId/rows/:rowId
func (h *RowHandler) Update(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	rowID := c.Param("rowId")

	var updates models.RowData
	if !BindJSON(c, &updates) {
		return
	}

	HandleGetEnvelope(c, "row", func() (interface{}, error) {
		return h.svc.Rows.Update(c.Request.Context(), tableID, rowID, updates, user)
	})
}

// Delete handles DELETE /api/tables/:tableId/rows/:rowId
func (h *RowHandler) Delete(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	rowID := c.Param("rowId")

	HandleDeleteEnvelope(c, "Row deleted successfully", func() error {
		return h.svc.Rows.Delete(c.Request.Context(), tableID, rowID, user)
	})
}

// MassDelete handles POST /api/tables/:tableId/rows/mass-delete
func (h *RowHandler) MassDelete(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	var req models.MassDeleteRequest
	if !BindJSON(c, &req) {
		return
	}

	deleted, err := h.svc.Rows.MassDelete(c.Request.Context(), tableID, req.IDs, user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// Values handles GET /api/tables/:tableId/values/:column
func (h *RowHandler) Values(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	column := c.Param("column")
	filters := c.QueryMap("filter")

	values, err := h.svc.Rows.Values(c.Request.Context(), tableID, column, filters, user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"values": values,
		"count":  len(values),
	})
}
