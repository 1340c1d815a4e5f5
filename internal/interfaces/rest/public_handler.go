package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// PublicHandler serves the token-authenticated public API. Responses use
// the public wire format (camelCase, no outer envelope).
type PublicHandler struct {
	svc *services.ServiceManager
}

func NewPublicHandler(svc *services.ServiceManager) *PublicHandler {
	return &PublicHandler{svc: svc}
}

// splitColumns turns a comma-separated columns parameter into clean names
func splitColumns(raw string) []string {
	if raw == "" {
		return nil
	}
	var columns []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			columns = append(columns, name)
		}
	}
	return columns
}

// Tables handles GET /api/public/tables
func (h *PublicHandler) Tables(c *gin.Context) {
	token := GetAPITokenFromContext(c)

	result, err := h.svc.Public.Tables(c.Request.Context(), token)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles GET /api/public/tables/search?columns=a,b
func (h *PublicHandler) Search(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	columns := splitColumns(c.Query("columns"))

	result, err := h.svc.Public.Search(c.Request.Context(), token, columns)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Items handles GET /api/public/tables/:tableId/items?flat=true
func (h *PublicHandler) Items(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	tableID := c.Param("tableId")
	flat := c.Query("flat") == "true"

	result, err := h.svc.Public.Items(c.Request.Context(), token, tableID, flat)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Item handles GET /api/public/tables/:tableId/items/:itemId
func (h *PublicHandler) Item(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	tableID := c.Param("tableId")
	itemID := c.Param("itemId")

	result, err := h.svc.Public.Item(c.Request.Context(), token, tableID, itemID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability handles GET /api/public/tables/:tableId/items/:itemId/availability?quantity=n
func (h *PublicHandler) Availability(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	tableID := c.Param("tableId")
	itemID := c.Param("itemId")
	quantity, _ := strconv.ParseFloat(c.Query("quantity"), 64)

	result, err := h.svc.Public.Availability(c.Request.Context(), token, tableID, itemID, quantity)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Records handles GET /api/public/records?where[col]=v&limit=&offset=&columns=a,b
func (h *PublicHandler) Records(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	where := c.QueryMap("where")
	columns := splitColumns(c.Query("columns"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	result, err := h.svc.Public.Records(c.Request.Context(), token, where, columns, limit, offset)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Values handles GET /api/public/values/:column?where[col]=v
func (h *PublicHandler) Values(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	column := c.Param("column")
	where := c.QueryMap("where")

	result, err := h.svc.Public.Values(c.Request.Context(), token, column, where)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Buy handles POST /api/public/buy
func (h *PublicHandler) Buy(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	var req models.PurchaseRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreatedEnvelope(c, "sale", func() (interface{}, error) {
		return h.svc.Public.Purchase(c.Request.Context(), token, req)
	})
}

// Rent handles POST /api/public/rent
func (h *PublicHandler) Rent(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	var req models.RentRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreatedEnvelope(c, "rental", func() (interface{}, error) {
		return h.svc.Public.Rent(c.Request.Context(), token, req)
	})
}

// Release handles POST /api/public/release
func (h *PublicHandler) Release(c *gin.Context) {
	token := GetAPITokenFromContext(c)
	var req models.ReleaseRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "rental", func() (interface{}, error) {
		return h.svc.Public.Release(c.Request.Context(), token, req)
	})
}
