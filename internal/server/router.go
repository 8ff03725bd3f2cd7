package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"festival-companion/backend/internal/audit"
	healthhandler "festival-companion/backend/internal/health/handler"
	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/platform/ratelimiter"
	"festival-companion/backend/internal/security"
	"festival-companion/backend/internal/server/middleware"
	subhandler "festival-companion/backend/internal/subscription/handler"
	transferhandler "festival-companion/backend/internal/transfer/handler"
)

// Deps holds the handlers and cross-cutting pieces mounted by NewRouter.
// Nil Audit, Limiter and Metrics disable the matching middleware or route.
type Deps struct {
	ServiceName   string
	Transfer      *transferhandler.Handler
	Subscriptions *subhandler.Handler
	Health        *healthhandler.Server
	Tokens        *security.TokenProvider
	Audit         audit.AuditLogger
	RedeemLimiter *ratelimiter.MapLimiter
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewRouter builds the gin engine serving the device and admin APIs.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	if deps.Audit != nil {
		r.Use(middleware.Audit(deps.Audit))
	}

	if deps.Health != nil {
		r.GET("/healthz", deps.Health.HealthCheck)
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	if t := deps.Transfer; t != nil {
		api.POST("/transfer/codes", t.CreateCode)
		api.POST("/transfer/redeem", middleware.RateLimit(deps.RedeemLimiter, deps.Metrics), t.Redeem)
		api.GET("/transfer/codes/active", t.HasActiveCode)
		api.GET("/devices/:handle/events", t.DeviceEvents)

		admin := api.Group("/admin", middleware.AdminAuth(deps.Tokens))
		admin.GET("/transfer/codes", t.AdminListCodes)
		admin.POST("/transfer/codes", t.AdminCreateCode)
		admin.POST("/transfer/cleanup", t.AdminCleanup)
	}
	if s := deps.Subscriptions; s != nil {
		api.GET("/push/public-key", s.PublicKey)
		api.PUT("/devices/:handle/subscription", s.Put)
		api.DELETE("/devices/:handle/subscription", s.Delete)
	}
	return r
}
