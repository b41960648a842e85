// Package http serves the plan ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"planledger/internal/cache"
	"planledger/internal/log"
	"planledger/internal/middleware/ratelimit"
	"planledger/internal/middleware/security"
	"planledger/internal/middleware/trace"
	"planledger/internal/services"
)

// Options configure NewServer.
type Options struct {
	JWTSecret     string
	CacheSize     int
	CacheTTL      time.Duration
	RatePerMinute int
}

type Server struct {
	http.Server
	engine       *services.Engine
	plans        *cache.PlanCache
	cacheManager *cache.Manager
	unsubscribe  func()
	limiter      *ratelimit.Limiter
	auth         *Authenticator
	tracer       *trace.Middleware
	logger       *log.Logger
}

// NewServer wires the router. The plan cache listens on the engine's bus so
// every recompute, status change or delete evicts what it served.
func NewServer(addr string, engine *services.Engine, opts Options) *Server {
	logger := log.ForComponent(log.ComponentHTTP)
	plans := cache.NewPlanCache(opts.CacheSize, opts.CacheTTL)
	manager := cache.NewManager()
	plans.Register(manager)

	s := &Server{
		engine:       engine,
		plans:        plans,
		cacheManager: manager,
		unsubscribe:  plans.Subscribe(engine.Bus()),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RatePerMinute}),
		auth:         NewAuthenticator(opts.JWTSecret),
		tracer:       trace.NewMiddleware(log.ForComponent(log.ComponentTrace)),
		logger:       logger,
	}
	if opts.CacheTTL > 0 {
		manager.StartCleanup(opts.CacheTTL)
	}

	s.Addr = addr
	s.Handler = s.Router()
	s.ReadHeaderTimeout = 5 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.tracer.Handler(), security.Headers(security.DefaultHeadersConfig()))

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api", s.auth.Middleware(), s.limiter.Middleware(ownerOf))
	{
		api.POST("/plans", s.handleCreatePlan)
		api.GET("/plans", s.handleListPlans)
		api.GET("/plans/:id", s.handleGetPlan)
		api.GET("/plans/:id/installments", s.handleListInstallments)
		api.POST("/plans/:id/refresh", s.handleRefreshPlan)
		api.DELETE("/plans/:id", s.handleDeletePlan)

		api.PATCH("/installments/:id/status", s.handleSetInstallmentStatus)
		api.DELETE("/installments/:id", s.handleDeleteInstallment)

		api.PATCH("/entries/:id/status", s.handleSetEntryStatus)

		api.POST("/pending/drain", s.handleDrain)
	}
	return r
}

// Shutdown stops accepting requests and releases the cache and limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.unsubscribe()
	s.cacheManager.Stop()
	s.limiter.Stop()
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"today":  s.engine.Today().String(),
		"cache":  s.plans.Stats(),
	})
}
