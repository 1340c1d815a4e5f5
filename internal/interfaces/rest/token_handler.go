package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// TokenHandler serves admin management of public API tokens
type TokenHandler struct {
	svc *services.ServiceManager
}

func NewTokenHandler(svc *services.ServiceManager) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// List handles GET /api/admin/tokens
func (h *TokenHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "tokens", func() (interface{}, error) {
		return h.svc.Access.ListTokens(c.Request.Context())
	})
}

// Create handles POST /api/admin/tokens. The raw credential is returned
// once here and never again.
func (h *TokenHandler) Create(c *gin.Context) {
	var req models.CreateTokenRequest
	if !BindJSON(c, &req) {
		return
	}

	token, secret, err := h.svc.Access.CreateToken(c.Request.Context(), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"secret": secret,
	})
}

// Get handles GET /api/admin/tokens/:id
func (h *TokenHandler) Get(c *gin.Context) {
	id := c.Param("id")

	HandleGetEnvelope(c, "token", func() (interface{}, error) {
		return h.svc.Access.GetToken(c.Request.Context(), id)
	})
}

// Update handles PUT /api/admin/tokens/:id
func (h *TokenHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateTokenRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGetEnvelope(c, "token", func() (interface{}, error) {
		return h.svc.Access.UpdateToken(c.Request.Context(), id, req)
	})
}

// Delete handles DELETE /api/admin/tokens/:id
func (h *TokenHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	HandleDeleteEnvelope(c, "Token deleted successfully", func() error {
		return h.svc.Access.DeleteToken(c.Request.Context(), id)
	})
}
