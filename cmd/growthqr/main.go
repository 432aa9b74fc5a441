package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/backend"
	"github.com/tribly/growthqr-bff-go/internal/config"
	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/handler"
	"github.com/tribly/growthqr-bff-go/internal/infra/cache"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"
	"github.com/tribly/growthqr-bff-go/internal/override"
	"github.com/tribly/growthqr-bff-go/internal/payment"
	"github.com/tribly/growthqr-bff-go/internal/qr"
	"github.com/tribly/growthqr-bff-go/internal/service"
	"github.com/tribly/growthqr-bff-go/internal/session"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_base_url", cfg.BackendBaseURL),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("payment_countdown", cfg.PaymentCountdown),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "growthqr-bff")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	detailsCache := cache.New[*domain.PlaceDetails](cfg.CacheTTL)
	analysisCache := cache.New[*domain.GBPAnalysis](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("growth-backend")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backendClient := backend.NewClient(httpClient, cfg.BackendBaseURL, cfg.BackendAPIKey, cb, resilienceCfg, logger)

	// --- Override store (Redis) ---
	rdb := override.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()
	overrideStore := override.NewStore(rdb, logger)

	// --- Session and flow managers ---
	sessions := session.NewManager(cfg.SessionTTL)
	qrFlows := qr.NewManager(backendClient, nil, cfg.SessionTTL, logger)

	gateway, err := payment.NewSimulatedGateway()
	if err != nil {
		logger.Fatal("failed to init payment gateway", zap.Error(err))
	}
	payments := payment.NewManager(payment.Config{
		Gateway:          gateway,
		CountdownSeconds: int(cfg.PaymentCountdown.Seconds()),
		Linger:           cfg.PaymentLinger,
		Metrics:          metrics,
		Logger:           logger,
	})

	// --- Services ---
	dashboardSvc := service.NewDashboard(backendClient, overrideStore, sessions, metrics, logger)
	onboardingSvc := service.NewOnboarding(
		backendClient,
		backendClient,
		payments,
		cfg.AnalysisSeed,
		detailsCache,
		analysisCache,
		cfg.SessionTTL,
		metrics,
		logger,
	)
	salesTeamSvc := service.NewSalesTeam(backendClient, metrics, logger)

	var users []service.User
	if cfg.AdminPassword != "" {
		hash, err := service.HashPassword(cfg.AdminPassword)
		if err != nil {
			logger.Fatal("failed to hash admin password", zap.Error(err))
		}
		users = append(users, service.User{
			Email:        cfg.AdminEmail,
			PasswordHash: hash,
			Role:         service.RoleAdmin,
		})
		logger.Info("bootstrap admin enabled", zap.String("email", cfg.AdminEmail))
	} else {
		logger.Warn("no ADMIN_PASSWORD configured, no accounts can log in")
	}
	authSvc := service.NewAuth(users, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Dashboard:  dashboardSvc,
		Onboarding: onboardingSvc,
		SalesTeam:  salesTeamSvc,
		Auth:       authSvc,
		Payments:   payments,
		QRFlows:    qrFlows,
		Places:     backendClient,
		Metrics:    metrics,
		Logger:     logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	sessions.Stop()
	qrFlows.Stop()
	onboardingSvc.Stop()
	detailsCache.Stop()
	analysisCache.Stop()

	logger.Info("server stopped")
}
