package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle if there are errors
		if len(c.Errors) == 0 {
			return
		}

		// Get the last error
		err := c.Errors.Last().Err
		var appErr *apperrors.AppError

		if !errors.As(err, &appErr) {
			// Unknown error, wrap as Internal
			appErr = apperrors.New(apperrors.ErrInternal, err.Error(), err)
		}

		// Log the error
		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ContextRequestID),
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.HTTPStatus, appErr)
	}
}

// Recovery is the outermost handler: it turns a panic that escaped every
// other middleware into a JSON 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.LogError(c.Request.Context(), fmt.Errorf("%v", recovered), "panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ContextRequestID),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			apperrors.New(apperrors.ErrInternal, "internal server error", nil))
	})
}
