package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/authz"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
	ContextIdentity  = "identity"
)

// RequestID tags the request with an id, a request-scoped logger and the
// client address used by activity logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > 64 {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)

		logger := log.With().Str("request_id", rid).Logger()
		ctx := authz.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(logger.WithContext(ctx))
		c.Next()
	}
}
