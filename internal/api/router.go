package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/api/handler"
	"github.com/arkapay/ppob-backend/internal/api/middleware"
	"github.com/arkapay/ppob-backend/internal/api/spec"
	"github.com/arkapay/ppob-backend/internal/config"
	"github.com/arkapay/ppob-backend/internal/idempotency"
	"github.com/arkapay/ppob-backend/internal/service"
)

// Router wires handlers, middleware and shared infrastructure into the
// HTTP surface. Services are built once in app.Run and shared with the
// background workers.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	idemStore *idempotency.Store

	authSvc    *service.AuthService
	catalogSvc *service.CatalogService
	depositSvc *service.DepositService
	trxSvc     *service.TransactionService
	balance    handler.BalanceChecker
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	pool *pgxpool.Pool,
	idemStore *idempotency.Store,
	authSvc *service.AuthService,
	catalogSvc *service.CatalogService,
	depositSvc *service.DepositService,
	trxSvc *service.TransactionService,
	balance handler.BalanceChecker,
) *Router {
	return &Router{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		idemStore:  idemStore,
		authSvc:    authSvc,
		catalogSvc: catalogSvc,
		depositSvc: depositSvc,
		trxSvc:     trxSvc,
		balance:    balance,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	healthHandler := handler.NewHealthHandler(api.pool)
	authHandler := handler.NewAuthHandler(api.authSvc)
	productHandler := handler.NewProductHandler(api.catalogSvc)
	depositHandler := handler.NewDepositHandler(api.depositSvc)
	trxHandler := handler.NewTransactionHandler(api.trxSvc)
	adminHandler := handler.NewAdminHandler(api.authSvc, api.catalogSvc, api.trxSvc, api.balance)
	webhookHandler := handler.NewWebhookHandler(api.trxSvc, api.depositSvc, api.cfg.H2HCallbackToken, api.cfg.GatewayCallbackToken)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Infrastructure
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/auth/register", authHandler.Register)
		r.Post("/v1/auth/login", authHandler.Login)

		// The H2H provider reports results with a GET or POST callback.
		r.Get("/webhooks/provider", webhookHandler.ProviderCallback)
		r.Post("/webhooks/provider", webhookHandler.ProviderCallback)
		r.Post("/webhooks/qris", webhookHandler.GatewayNotification)
	})

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/me", authHandler.Me)

		// Catalog
		r.Get("/v1/products", productHandler.List)
		r.Get("/v1/products/{id}", productHandler.Get)

		// Deposits
		r.With(idem).Post("/v1/deposits", depositHandler.Create)
		r.Get("/v1/deposits", depositHandler.List)
		r.Get("/v1/deposits/pending", depositHandler.Pending)
		r.Get("/v1/deposits/{id}", depositHandler.Get)
		r.Post("/v1/deposits/{id}/cancel", depositHandler.Cancel)
		r.Post("/v1/deposits/{id}/refresh", depositHandler.Refresh)

		// Transactions
		r.With(idem).Post("/v1/transactions", trxHandler.Create)
		r.Get("/v1/transactions", trxHandler.List)
		r.Get("/v1/transactions/{id}", trxHandler.Get)
		r.Post("/v1/transactions/{id}/refresh", trxHandler.Refresh)

		// Admin
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Get("/users", adminHandler.ListUsers)
			r.Put("/users/{id}/role", adminHandler.UpdateRole)
			r.Post("/users/{id}/balance", adminHandler.AdjustBalance)
			r.Post("/catalog/sync", adminHandler.SyncCatalog)
			r.Get("/provider/balance", adminHandler.ProviderBalance)
			r.Post("/transactions/{id}/refund", adminHandler.MarkRefund)
		})
	})

	return r
}
