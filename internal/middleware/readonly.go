package middleware

import (
	"net/http"
	"strings"

	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ReadOnlyMiddleware blocks unsafe methods while maintenance mode is on.
// Paths under allowPrefixes (token issuance) stay writable so clients can
// still authenticate.
func ReadOnlyMiddleware(enabled bool, allowPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		for _, p := range allowPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		default:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
			return
		}
	}
}
