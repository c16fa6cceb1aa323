package server

import (
	"context"

	"github.com/abduss/gotodo/internal/auth"
	"github.com/abduss/gotodo/internal/config"
	"github.com/abduss/gotodo/internal/logger"
	"github.com/abduss/gotodo/internal/metrics"
	"github.com/abduss/gotodo/internal/ratelimit"
	"github.com/abduss/gotodo/internal/todo"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	Logger      *zap.Logger
	DB          Pinger
	Redis       *redis.Client
	Limiter     ratelimit.Limiter
	AuthService *auth.Service
	TodoService *todo.Service
}

// routeBases are the prefixes every API route is mounted under; /api keeps the
// original path layout working for existing clients.
var routeBases = []string{"", "/api"}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	metrics.InitMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(log))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	if deps.AuthService == nil {
		return router
	}

	cookies := deps.Config.Cookie
	limiter := ratelimit.Middleware(deps.Limiter, "credentials", log)
	gate := auth.Gate(deps.AuthService, cookies)

	for _, base := range routeBases {
		api := router.Group(base)
		auth.RegisterRoutes(api, deps.AuthService, auth.RouteConfig{
			Cookies: cookies,
			Logger:  log,
			Limiter: limiter,
		})

		if deps.TodoService != nil {
			protected := api.Group("", gate)
			todo.RegisterRoutes(protected, deps.TodoService, log)
			todo.RegisterAdminRoutes(protected.Group("/admin", auth.RequireAdmin()), deps.TodoService, log)
		}
	}

	return router
}
