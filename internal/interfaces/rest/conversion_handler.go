package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// ConversionHandler serves table type conversion preview and apply
type ConversionHandler struct {
	svc *services.ServiceManager
}

func NewConversionHandler(svc *services.ServiceManager) *ConversionHandler {
	return &ConversionHandler{svc: svc}
}

// Preview handles GET /api/tables/:tableId/convert/preview?type=sale
func (h *ConversionHandler) Preview(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	targetType := c.Query("type")

	HandleGetEnvelope(c, "preview", func() (interface{}, error) {
		return h.svc.Conversion.Preview(c.Request.Context(), tableID, targetType, user)
	})
}

// Apply handles POST /api/tables/:tableId/convert
func (h *ConversionHandler) Apply(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	var req models.ApplyConversionRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "result", func() (interface{}, error) {
		return h.svc.Conversion.Apply(c.Request.Context(), tableID, req, user)
	})
}
