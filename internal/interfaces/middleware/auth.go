package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/pkg/auth"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		constants.ResponseError:   "Unauthorized",
		constants.ResponseMessage: message,
		"code":                    "UNAUTHORIZED",
		"data":                    nil,
	})
	c.Abort()
}

// bearerToken extracts the credential from the Authorization header,
// empty when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader(constants.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// RequireUser is a middleware that validates JWT tokens
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortUnauthorized(c, "No authorization token provided")
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		user := claims.User
		c.Set(constants.ContextKeyUser, &user)

		c.Next()
	}
}

// RequireAdmin checks if the authenticated user is an administrator.
// Must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			abortUnauthorized(c, "User not authenticated")
			return
		}

		user := userInterface.(*models.UserContext)
		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				constants.ResponseError:   "Forbidden",
				constants.ResponseMessage: "Only administrators can access this resource",
				"code":                    "FORBIDDEN",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAPIToken resolves the opaque public API token and stores the
// token row for handlers. Expiry is checked on every request.
func RequireAPIToken(access *services.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := access.ResolveToken(c.Request.Context(), bearerToken(c))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(constants.ContextKeyToken, token)

		c.Next()
	}
}
