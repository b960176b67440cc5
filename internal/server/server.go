package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	"github.com/smallbiznis/revroute/internal/config"
	entitydomain "github.com/smallbiznis/revroute/internal/entity/domain"
	"github.com/smallbiznis/revroute/internal/observability/tracing"
	"github.com/smallbiznis/revroute/internal/pause/coordinator"
	pausedomain "github.com/smallbiznis/revroute/internal/pause/domain"
	positiondomain "github.com/smallbiznis/revroute/internal/position/domain"
	routingdomain "github.com/smallbiznis/revroute/internal/routing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(tracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("http server", zap.Error(err))
				}
			}()
			logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	entitySvc   entitydomain.Service
	positionSvc positiondomain.Service
	routingSvc  routingdomain.Service
	pauseSvc    pausedomain.Service
	auditSvc    auditdomain.Service
	coordinator *coordinator.Coordinator
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	EntitySvc   entitydomain.Service
	PositionSvc positiondomain.Service
	RoutingSvc  routingdomain.Service
	PauseSvc    pausedomain.Service
	AuditSvc    auditdomain.Service
	Coordinator *coordinator.Coordinator
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		entitySvc:   p.EntitySvc,
		positionSvc: p.PositionSvc,
		routingSvc:  p.RoutingSvc,
		pauseSvc:    p.PauseSvc,
		auditSvc:    p.AuditSvc,
		coordinator: p.Coordinator,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/entities", s.CreateEntity)
	v1.GET("/entities", s.ListEntities)

	v1.GET("/positions", s.ListPositions)
	v1.GET("/entities/:id/snapshots", s.ListSnapshots)

	v1.POST("/routing/decisions", s.RoutePayment)

	v1.POST("/pause-windows", s.SchedulePause)
	v1.GET("/pause-windows/:id", s.GetPauseWindow)
	v1.POST("/pause-windows/:id/cancel", s.CancelPause)

	v1.POST("/batch/runs", s.TriggerBatchRun)
	v1.GET("/batch/runs/last", s.LastBatchRun)

	v1.GET("/audit-logs", s.ListAuditLogs)
}
