package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macfixkou/repair-manager/internal/attachment"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	"github.com/macfixkou/repair-manager/internal/audit"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	"github.com/macfixkou/repair-manager/internal/auth"
	authdomain "github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/auth/session"
	"github.com/macfixkou/repair-manager/internal/authorization"
	"github.com/macfixkou/repair-manager/internal/casesheet"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/identity"
	"github.com/macfixkou/repair-manager/internal/observability"
	obsmiddleware "github.com/macfixkou/repair-manager/internal/observability/logger"
	obsmetrics "github.com/macfixkou/repair-manager/internal/observability/metrics"
	obstracing "github.com/macfixkou/repair-manager/internal/observability/tracing"
	"github.com/macfixkou/repair-manager/internal/organization"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/ratelimit"
	"github.com/macfixkou/repair-manager/internal/repaircase"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	auth.Module,
	authorization.Module,
	organization.Module,
	repaircase.Module,
	attachment.Module,
	audit.Module,
	casesheet.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	authsvc       authdomain.Service
	sessions      *session.Manager
	authzSvc      authorization.Service
	caseSvc       casedomain.Service
	attachmentSvc attachmentdomain.Service
	orgSvc        orgdomain.Service
	auditSvc      auditdomain.Service
	sheets        casesheet.Renderer
	limiter       *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	AuthzSvc      authorization.Service
	CaseSvc       casedomain.Service
	AttachmentSvc attachmentdomain.Service
	OrgSvc        orgdomain.Service
	AuditSvc      auditdomain.Service
	Sheets        casesheet.Renderer
	Limiter       *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		clock:         p.Clock,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		authzSvc:      p.AuthzSvc,
		caseSvc:       p.CaseSvc,
		attachmentSvc: p.AttachmentSvc,
		orgSvc:        p.OrgSvc,
		auditSvc:      p.AuditSvc,
		sheets:        p.Sheets,
		limiter:       p.Limiter,
	}

	svc.registerHealthRoutes()
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health/db", s.HealthDB)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/meta/enums", s.ListEnums)

	cases := api.Group("/cases")
	{
		cases.GET("", s.RequirePermission(authorization.ObjectCase, authorization.ActionRead), s.ListCases)
		cases.POST("", s.RequirePermission(authorization.ObjectCase, authorization.ActionWrite), s.CreateCase)
		cases.GET("/export.csv", s.RequirePermission(authorization.ObjectExport, authorization.ActionRead), s.ExportCasesCSV)
		cases.GET("/:id", s.RequirePermission(authorization.ObjectCase, authorization.ActionRead), s.GetCase)
		cases.PATCH("/:id", s.RequirePermission(authorization.ObjectCase, authorization.ActionWrite), s.UpdateCase)
		cases.PUT("/:id", s.RequirePermission(authorization.ObjectCase, authorization.ActionWrite), s.UpdateCase)
		cases.DELETE("/:id", s.RequirePermission(authorization.ObjectCase, authorization.ActionDelete), s.DeleteCase)
		cases.GET("/:id/share-export", s.RequirePermission(authorization.ObjectExport, authorization.ActionRead), s.ShareExport)
		cases.GET("/:id/sheet.pdf", s.RequirePermission(authorization.ObjectExport, authorization.ActionRead), s.CaseSheet)
		cases.PUT("/:id/status-history/:historyId", s.RequirePermission(authorization.ObjectCase, authorization.ActionWrite), s.UpdateStatusHistory)
		cases.DELETE("/:id/status-history/:historyId", s.RequirePermission(authorization.ObjectCase, authorization.ActionWrite), s.DeleteStatusHistory)
		cases.POST("/:id/attachments", s.RequirePermission(authorization.ObjectAttachment, authorization.ActionWrite), s.UploadAttachment)
	}

	api.DELETE("/attachments/:id", s.RequirePermission(authorization.ObjectAttachment, authorization.ActionWrite), s.DeleteAttachment)

	api.GET("/settings", s.RequirePermission(authorization.ObjectSettings, authorization.ActionRead), s.GetSettings)
	api.PUT("/settings", s.RequirePermission(authorization.ObjectSettings, authorization.ActionWrite), s.UpdateSettings)

	api.GET("/audit-logs", s.RequirePermission(authorization.ObjectAudit, authorization.ActionRead), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) HealthDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx, s.db); err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
