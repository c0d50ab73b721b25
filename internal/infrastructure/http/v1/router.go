// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/app"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/http/v1/middleware"
	"backoffice/internal/infrastructure/metrics"
	"backoffice/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services *app.Services
	Logger   *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Metrics records requests and serves /metrics when set.
	Metrics *metrics.Metrics

	// Probes back /health/ready.
	Probes []handlers.Probe

	Production         bool
	RateLimitPerMinute int
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()

	// order matters
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log, cfg.Metrics))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SecureHeaders(cfg.Production))

	healthHandler := handlers.NewHealthHandler(cfg.Probes...)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	v1.Use(middleware.Auth(cfg.JWTValidator))
	registerDocumentRoutes(v1, cfg)

	return router
}

// registerDocumentRoutes registers the maker-checker document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	base := handlers.NewBaseHandler()
	svc := cfg.Services

	stockCorrections := handlers.NewDocumentHandler[*stock_correction.StockCorrection, stock_correction.CreateRequest, stock_correction.UpdateRequest](
		base, svc.StockCorrections, svc.Gate, stock_correction.DocumentType,
	)
	stockCorrections.RegisterRoutes(rg.Group("/inventory/stock-corrections"))

	salesInvoices := handlers.NewDocumentHandler[*sales_invoice.SalesInvoice, sales_invoice.CreateRequest, sales_invoice.UpdateRequest](
		base, svc.SalesInvoices, svc.Gate, sales_invoice.DocumentType,
	)
	salesInvoices.RegisterRoutes(rg.Group("/sales/invoices"))
}
