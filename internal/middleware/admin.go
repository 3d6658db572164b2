package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/config"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards operational endpoints (history, manual sync).
// When no admin key is configured the endpoints are disabled outright.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Auth.AdminKey == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin endpoints disabled"})
			c.Abort()
			return
		}

		key := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Auth.AdminKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
