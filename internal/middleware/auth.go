package middleware

import (
	"context"
	"strings"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const ContextPrincipalKey = "principal"

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (currentuser.Principal, error)
}

// AuthMiddleware installs the principal of a valid bearer token into the
// request context. Requests without an Authorization header continue as
// anonymous; a header that does not verify is rejected with 401.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := ExtractBearerToken(header)
		if !ok {
			c.Error(apperrors.NewAuthFailed("Authorization header must contain a Bearer token"))
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		// 写入 request context，后续 service / repository / gorm hook 都能读到
		c.Request = c.Request.WithContext(currentuser.With(c.Request.Context(), principal))
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

func ExtractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Principal returns the principal of the current request, anonymous if none.
func Principal(c *gin.Context) currentuser.Principal {
	if v, ok := c.Get(ContextPrincipalKey); ok {
		if p, ok := v.(currentuser.Principal); ok {
			return p
		}
	}
	p, _ := currentuser.From(c.Request.Context())
	return p
}
