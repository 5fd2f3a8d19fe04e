package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// ErrorLogger logs the errors handlers attached with c.Error. Client
// errors are logged at debug so expected failures stay quiet.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		logger := zerolog.Ctx(c.Request.Context())
		for _, e := range c.Errors {
			kind := apperrors.KindOf(e.Err)
			event := logger.Debug()
			if kind == apperrors.KindInternal {
				event = logger.Error()
			}
			event.Err(e.Err).
				Str("kind", kind.String()).
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("Request error")
		}
	}
}
