package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware gates the batch endpoints with the shared bearer
// secret. Constant-time compare; the secret is environment-configured.
func CronAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.GlobalConfig.Cron.Secret

		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrCronUnauthorized, "Bearer token required")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			response.Error(c, http.StatusForbidden, response.ErrCronUnauthorized, "Invalid cron secret")
			c.Abort()
			return
		}

		c.Next()
	}
}
