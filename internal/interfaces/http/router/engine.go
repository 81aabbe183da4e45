package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/offscriptLunaTechs/oxab-business-flow-sub000/docs"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/logger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/telemetry"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/handler"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// EngineConfig configures the middleware chain of the ledger HTTP engine
type EngineConfig struct {
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	Profiling      middleware.ProfilingConfig
	Metrics        *telemetry.HTTPMetrics
	RateLimiter    *middleware.RateLimiter
	TrustedProxies []string
}

// opsPaths are left out of the HTTP request metrics
var opsPaths = []string{"/health", "/metrics"}

// NewEngine builds a gin engine with the ledger middleware chain and JSON answers
// for unknown routes and methods.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanAttributes(),
		middleware.ProfilingWithConfig(cfg.Profiling),
		middleware.Metrics(cfg.Metrics, opsPaths...),
		middleware.RateLimit(cfg.RateLimiter),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed, "Method not allowed for this route", middleware.GetRequestID(c)))
	})

	return engine, nil
}

// RegisterLedgerAPI mounts the customer, invoice, payment and report endpoints under /api/v1
func RegisterLedgerAPI(engine *gin.Engine, svc *appledger.LedgerService) {
	NewRouter(engine).
		Register(handler.NewCustomerHandler(svc)).
		Register(handler.NewInvoiceHandler(svc)).
		Register(handler.NewPaymentHandler(svc)).
		Register(handler.NewReportHandler(svc)).
		Setup()
}

type opsOptions struct {
	swagger bool
}

type OpsOption func(*opsOptions)

// WithSwaggerUI serves the generated OpenAPI document and its UI under /swagger
func WithSwaggerUI(enabled bool) OpsOption {
	return func(o *opsOptions) { o.swagger = enabled }
}

// OpsGroup serves the health check and, when gatherer is set, the Prometheus scrape
// endpoint. Both live outside /api so orchestrators reach them without the API version.
func OpsGroup(health *handler.HealthHandler, gatherer prometheus.Gatherer, opts ...OpsOption) RouteRegistrar {
	var o opsOptions
	for _, opt := range opts {
		opt(&o)
	}
	return RegistrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health", health.Health)
		if gatherer != nil {
			rg.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
		}
		if o.swagger {
			rg.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		}
	})
}
