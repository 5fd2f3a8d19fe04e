package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Handler is implemented by every resource handler mounted behind the gate.
type Handler interface {
	RegisterRoutes(r *gin.RouterGroup, allow handler.Authorizer)
}

type Router struct {
	engine   *gin.Engine
	gate     *middleware.AuthMiddleware
	authH    *auth.Handler
	handlers []Handler
	health   *health.Handler
	metricsH *prometheus.Handler
	spa      *handler.SPA
}

type RouterConfig struct {
	Mode        string
	RateLimit   rate.Limit
	RateBurst   int
	Timeout     time.Duration
	MaxBodySize int64
	CORSConfig  middleware.CORSConfig
}

func NewRouter(
	config RouterConfig,
	m *metrics.Metrics,
	gate *middleware.AuthMiddleware,
	authH *auth.Handler,
	handlers []Handler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	spa *handler.SPA,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = false

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}
	engine.Use(
		middleware.Timeout(config.Timeout),
		middleware.SizeLimit(config.MaxBodySize),
	)

	return &Router{
		engine:   engine,
		gate:     gate,
		authH:    authH,
		handlers: handlers,
		health:   healthH,
		metricsH: metricsH,
		spa:      spa,
	}
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	r.metricsH.RegisterRoutes(r.engine)

	api := r.engine.Group(handler.APIPrefix)
	api.Use(middleware.NoStore())

	protected := api.Group("")
	protected.Use(r.gate.Authenticate())

	r.authH.RegisterRoutes(api, protected, r.gate.Require)
	for _, h := range r.handlers {
		h.RegisterRoutes(protected, r.gate.Require)
	}

	r.engine.GET("/", r.spa.Root)
	r.engine.NoRoute(r.spa.NoRoute)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
