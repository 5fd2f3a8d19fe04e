package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/handler"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter is a single token bucket shared by every request.
type RateLimiter struct {
	limiter    *rate.Limiter
	retryAfter string
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		limiter:    rate.NewLimiter(config.Rate, config.Burst),
		retryAfter: strconv.Itoa(retryAfterSeconds(config.Rate)),
	}
}

// retryAfterSeconds is the time until the bucket refills one token, rounded up.
func retryAfterSeconds(r rate.Limit) int {
	if r <= 0 || r == rate.Inf {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(r))))
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			log.Ctx(c.Request.Context()).Debug().
				Str("path", c.Request.URL.Path).
				Msg("Request rate limited")
			c.Header("Retry-After", rl.retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
