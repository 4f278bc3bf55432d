package middleware

import (
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).IsAuthenticated() {
			c.Error(apperrors.NewAuthFailed("Authentication credentials were not provided."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff admits authenticated staff only: 401 for anonymous, 403 for
// everyone else.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if !p.IsAuthenticated() {
			c.Error(apperrors.NewAuthFailed("Authentication credentials were not provided."))
			c.Abort()
			return
		}
		if !p.IsStaff {
			c.Error(apperrors.NewPermissionDenied("You do not have permission to perform this action."))
			c.Abort()
			return
		}
		c.Next()
	}
}
