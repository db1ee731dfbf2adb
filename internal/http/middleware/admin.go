package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type AdminMiddleware struct {
	log   *logger.Logger
	token string
}

func NewAdminMiddleware(baseLog *logger.Logger, token string) *AdminMiddleware {
	return &AdminMiddleware{
		log:   baseLog.With("middleware", "AdminMiddleware"),
		token: strings.TrimSpace(token),
	}
}

// RequireAdmin guards the admin surface with a static bearer token. A server
// started without ADMIN_API_TOKEN rejects every admin call.
func (am *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "admin surface disabled", "code": "forbidden"},
			})
			return
		}
		presented := extractBearerToken(c)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(am.token)) != 1 {
			am.log.Warn("Admin token rejected", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
