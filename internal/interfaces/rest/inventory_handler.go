package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// InventoryHandler serves sale and rental records: the overdue listing for
// table owners plus the admin record management endpoints.
type InventoryHandler struct {
	svc *services.ServiceManager
}

func NewInventoryHandler(svc *services.ServiceManager) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Overdue handles GET /api/tables/:tableId/rentals/overdue
func (h *InventoryHandler) Overdue(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	HandleGetEnvelope(c, "rentals", func() (interface{}, error) {
		if _, err := h.svc.Schema.RequireReadable(c.Request.Context(), tableID, user); err != nil {
			return nil, err
		}
		return h.svc.Inventory.ListOverdue(c.Request.Context(), tableID)
	})
}

// ListSales handles GET /api/admin/sales
func (h *InventoryHandler) ListSales(c *gin.Context) {
	f := persistence.SaleFilter{
		TableID:    c.Query("table_id"),
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	sales, pageInfo, err := h.svc.Inventory.ListSales(c.Request.Context(), f, page, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sales":      sales,
		"pagination": pageInfo,
	})
}

// GetSale handles GET /api/admin/sales/:id
func (h *InventoryHandler) GetSale(c *gin.Context) {
	id := c.Param("id")

	HandleGetEnvelope(c, "sale", func() (interface{}, error) {
		return h.svc.Inventory.GetSale(c.Request.Context(), id)
	})
}

// UpdateSale handles PUT /api/admin/sales/:id
func (h *InventoryHandler) UpdateSale(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateSaleRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "sale", func() (interface{}, error) {
		return h.svc.Inventory.UpdateSale(c.Request.Context(), id, req)
	})
}

// ListRentals handles GET /api/admin/rentals
func (h *InventoryHandler) ListRentals(c *gin.Context) {
	f := persistence.RentalFilter{
		TableID:    c.Query("table_id"),
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	rentals, pageInfo, err := h.svc.Inventory.ListRentals(c.Request.Context(), f, page, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rentals":    rentals,
		"pagination": pageInfo,
	})
}

// GetRental handles GET /api/admin/rentals/:id
func (h *InventoryHandler) GetRental(c *gin.Context) {
	id := c.Param("id")

	HandleGetEnvelope(c, "rental", func() (interface{}, error) {
		return h.svc.Inventory.GetRental(c.Request.Context(), id)
	})
}

// UpdateRental handles PUT /api/admin/rentals/:id
func (h *InventoryHandler) UpdateRental(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateRentalRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "rental", func() (interface{}, error) {
		return h.svc.Inventory.UpdateRental(c.Request.Context(), id, req)
	})
}
