package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/api"
	"github.com/arkapay/ppob-backend/internal/api/middleware"
	"github.com/arkapay/ppob-backend/internal/config"
	"github.com/arkapay/ppob-backend/internal/db"
	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/idempotency"
	"github.com/arkapay/ppob-backend/internal/observability"
	"github.com/arkapay/ppob-backend/internal/provider"
	"github.com/arkapay/ppob-backend/internal/repository"
	"github.com/arkapay/ppob-backend/internal/service"
	"github.com/arkapay/ppob-backend/internal/worker"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	store := repository.NewStore(pool)

	providerClient := provider.NewClient(provider.Config{
		BaseURL:  cfg.H2HBaseURL,
		MemberID: cfg.H2HMemberID,
		Pin:      cfg.H2HPin,
		Password: cfg.H2HPassword,
	})
	catalogClient := provider.NewCatalogClient(provider.CatalogConfig{
		URL:      cfg.CatalogURL,
		PriceID:  cfg.CatalogPriceID,
		Products: cfg.CatalogProducts,
	})
	mutationFeed := gateway.NewClient(gateway.Config{
		BaseURL:      cfg.GatewayMutationURL,
		MerchantCode: cfg.GatewayMerchantCode,
		APIKey:       cfg.GatewayAPIKey,
	}, logger)

	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	catalogSvc := service.NewCatalogService(store, catalogClient, cfg.CatalogMargin)
	depositSvc := service.NewDepositService(store, mutationFeed, cfg.QRISBasePayload, rand.New(rand.NewSource(time.Now().UnixNano())))
	trxSvc := service.NewTransactionService(store, providerClient)

	statusWorker := worker.NewStatusWorker(trxSvc).
		WithInterval(cfg.StatusPollInterval).
		WithBatchSize(cfg.StatusBatchSize)
	stopStatusWorker := statusWorker.Run(ctx)
	logger.Info("status worker started", zap.Duration("interval", cfg.StatusPollInterval), zap.Int("batch", cfg.StatusBatchSize))

	depositWorker := worker.NewDepositWorker(depositSvc).WithInterval(cfg.DepositSweepInterval)
	stopDepositWorker := depositWorker.Run(ctx)
	logger.Info("deposit worker started", zap.Duration("interval", cfg.DepositSweepInterval))

	catalogWorker := worker.NewCatalogWorker(catalogSvc, cfg.CatalogSchedule)
	if err := catalogWorker.Start(ctx); err != nil {
		return fmt.Errorf("start catalog worker: %w", err)
	}

	router := api.NewRouter(cfg, logger, pool, idemStore, authSvc, catalogSvc, depositSvc, trxSvc, providerClient)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopStatusWorker()
	stopDepositWorker()
	catalogWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
