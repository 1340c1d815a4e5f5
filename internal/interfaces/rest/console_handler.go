package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// ConsoleHandler serves the admin SQL console
type ConsoleHandler struct {
	svc *services.ServiceManager
}

func NewConsoleHandler(svc *services.ServiceManager) *ConsoleHandler {
	return &ConsoleHandler{svc: svc}
}

// Query handles POST /api/admin/query
func (h *ConsoleHandler) Query(c *gin.Context) {
	var req models.ConsoleRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "result", func() (interface{}, error) {
		return h.svc.Console.Execute(c.Request.Context(), req.SQL)
	})
}
