// Package router wires the gin engine, middleware, and endpoints, and owns
// the HTTP server lifecycle.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/internal/interfaces/http/handlers"
	"github.com/floodguard/serving/internal/interfaces/http/middleware"
	"github.com/floodguard/serving/pkg/logger"
)

// Router assembles the HTTP surface.
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	logger            logger.Logger
	tracing           *monitoring.TracingManager
	healthHandler     *handlers.HealthHandler
	predictionHandler *handlers.PredictionHandler
	modelHandler      *handlers.ModelHandler
	metricsHandler    *handlers.MetricsHandler
	server            *http.Server
}

// NewRouter creates the router.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	tracing *monitoring.TracingManager,
	healthHandler *handlers.HealthHandler,
	predictionHandler *handlers.PredictionHandler,
	modelHandler *handlers.ModelHandler,
	metricsHandler *handlers.MetricsHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:            gin.New(),
		config:            cfg,
		logger:            log,
		tracing:           tracing,
		healthHandler:     healthHandler,
		predictionHandler: predictionHandler,
		modelHandler:      modelHandler,
		metricsHandler:    metricsHandler,
	}
}

// SetupRoutes registers middleware and endpoints.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	if r.tracing != nil {
		r.engine.Use(middleware.Tracing(r.tracing))
	}
	r.engine.Use(middleware.AccessLog(r.logger))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.healthHandler.Live)
	r.engine.GET("/health/ready", r.healthHandler.Ready)

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		predict := v1.Group("/predict")
		{
			predict.POST("/flood-risk", r.predictionHandler.PredictFloodRisk)
			predict.POST("/nowcast", r.predictionHandler.PredictNowcast)
			predict.POST("/anomaly", r.predictionHandler.PredictAnomaly)
			predict.POST("/batch", r.predictionHandler.PredictBatch)
			predict.POST("/evacuation-zones", r.predictionHandler.GenerateEvacuationZones)
		}
		mdl := v1.Group("/models")
		{
			mdl.GET("/status", r.modelHandler.Status)
			mdl.GET("/:family/metadata", r.modelHandler.Metadata)
			mdl.POST("/reload", r.modelHandler.ReloadAll)
			mdl.POST("/:family/reload", r.modelHandler.Reload)
			mdl.DELETE("/:family/cache", r.modelHandler.ClearCache)
		}
		metrics := v1.Group("/metrics")
		{
			metrics.GET("/performance", r.metricsHandler.Performance)
			metrics.POST("/performance/reset", r.metricsHandler.ResetPerformance)
			metrics.GET("/cache", r.metricsHandler.CacheStats)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "the requested resource was not found",
		})
	})
}

// Start runs the HTTP server until it is shut down.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(r.config.Server.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting http server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping http server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
