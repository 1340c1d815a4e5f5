package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// TableHandler serves table metadata: the tables themselves, their columns
// and their validation rules.
type TableHandler struct {
	svc *services.ServiceManager
}

func NewTableHandler(svc *services.ServiceManager) *TableHandler {
	return &TableHandler{svc: svc}
}

// List handles GET /api/tables
func (h *TableHandler) List(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "tables", func() (interface{}, error) {
		return h.svc.Schema.ListTables(c.Request.Context(), user)
	})
}

// Create handles POST /api/tables
func (h *TableHandler) Create(c *gin.Context) {
	user := GetUserFromContext(c)
	var req models.CreateTableRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreatedEnvelope(c, "table", func() (interface{}, error) {
		return h.svc.Schema.CreateTable(c.Request.Context(), req, user)
	})
}

// Get handles GET /api/tables/:tableId
func (h *TableHandler) Get(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	HandleGetEnvelope(c, "table", func() (interface{}, error) {
		return h.svc.Schema.GetTable(c.Request.Context(), tableID, user)
	})
}

// Update handles PUT /api/tables/:tableId
func (h *TableHandler) Update(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	var req models.UpdateTableRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "table", func() (interface{}, error) {
		return h.svc.Schema.UpdateTable(c.Request.Context(), tableID, req, user)
	})
}

// Delete handles DELETE /api/tables/:tableId
func (h *TableHandler) Delete(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	HandleDeleteEnvelope(c, "Table deleted successfully", func() error {
		return h.svc.Schema.DeleteTable(c.Request.Context(), tableID, user)
	})
}

// AddColumn handles POST /api/tables/:tableId/columns
func (h *TableHandler) AddColumn(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	var req models.CreateColumnRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreatedEnvelope(c, "column", func() (interface{}, error) {
		return h.svc.Schema.AddColumn(c.Request.Context(), tableID, req, user)
	})
}

// UpdateColumn handles PUT /api/tables/:tableId/columns/:columnId
func (h *TableHandler) UpdateColumn(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	columnID := c.Param("columnId")
	var req models.UpdateColumnRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "column", func() (interface{}, error) {
		return h.svc.Schema.UpdateColumn(c.Request.Context(), tableID, columnID, req, user)
	})
}

// DeleteColumn handles DELETE /api/tables/:tableId/columns/:columnId
func (h *TableHandler) DeleteColumn(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	columnID := c.Param("columnId")

	HandleDeleteEnvelope(c, "Column deleted successfully", func() error {
		return h.svc.Schema.DeleteColumn(c.Request.Context(), tableID, columnID, user)
	})
}

// ListRules handles GET /api/tables/:tableId/rules
func (h *TableHandler) ListRules(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")

	HandleGetEnvelope(c, "rules", func() (interface{}, error) {
		return h.svc.Schema.ListRules(c.Request.Context(), tableID, user)
	})
}

// CreateRule handles POST /api/tables/:tableId/rules
func (h *TableHandler) CreateRule(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	var req models.CreateRuleRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreatedEnvelope(c, "rule", func() (interface{}, error) {
		return h.svc.Schema.CreateRule(c.Request.Context(), tableID, req, user)
	})
}

// UpdateRule handles PUT /api/tables/:tableId/rules/:ruleId
func (h *TableHandler) UpdateRule(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	ruleID := c.Param("ruleId")
	var req models.UpdateRuleRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "rule", func() (interface{}, error) {
		return h.svc.Schema.UpdateRule(c.Request.Context(), tableID, ruleID, req, user)
	})
}

// DeleteRule handles DELETE /api/tables/:tableId/rules/:ruleId
func (h *TableHandler) DeleteRule(c *gin.Context) {
	user := GetUserFromContext(c)
	tableID := c.Param("tableId")
	ruleID := c.Param("ruleId")

	HandleDeleteEnvelope(c, "Rule deleted successfully", func() error {
		return h.svc.Schema.DeleteRule(c.Request.Context(), tableID, ruleID, user)
	})
}
