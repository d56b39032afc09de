package middleware

import (
	"net/http"
	"strings"

	"github.com/oraharon2020/tavati-sub001/pkg/response"
	"github.com/oraharon2020/tavati-sub001/pkg/utils"

	"github.com/gin-gonic/gin"
)

const RoleAdmin = "admin"

// OperatorAuthMiddleware validates the back-office JWT. End users never hold
// tokens; every operator route sits behind this.
func OperatorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("operatorID", claims.OperatorID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminMiddleware requires the admin role on top of OperatorAuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			c.Abort()
			return
		}

		if roleStr, ok := role.(string); !ok || roleStr != RoleAdmin {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			c.Abort()
			return
		}

		c.Next()
	}
}
