package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/interfaces/http/handler"
	"github.com/rentledger/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers the ledger API serves
type Handlers struct {
	Tenancy *handler.TenancyHandler
	Ledger  *handler.LedgerHandler
	Health  *handler.HealthHandler
}

// EngineConfig configures the middleware stack
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Logger  *zap.Logger
	Tracing middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// Verifier authenticates operators on /api routes; nil leaves them open
	Verifier middleware.TokenVerifier
}

// NewEngine builds the gin engine: global middleware, /health outside the
// API group, and the tenancy and payment groups under /api/v1.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// request id first so recovery and access logs carry it
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.HeaderRequestID, handler.HeaderIdempotentReplay, "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", h.Health.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.Verifier != nil {
		r.Use(middleware.OperatorAuth(cfg.Verifier))
	} else {
		log.Warn("Operator authentication disabled; API routes are open")
	}
	r.Use(middleware.SpanEnricher())
	r.Register(TenancyRoutes(h.Tenancy, h.Ledger)).
		Register(PaymentRoutes(h.Ledger))
	r.Setup()

	return engine
}
