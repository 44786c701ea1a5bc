package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/handler"
	"storefront-be/internal/inventory"
	"storefront-be/internal/ledger"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/returns"
	"storefront-be/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	rec, err := metrics.New(tel.MeterProvider())
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	gateway, err := payment.NewGateway(cfg)
	if err != nil {
		log.Fatal("failed to build payment gateway", zap.Error(err))
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	router := setupRouter(cfg, database, gateway, limiter, rec)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("payment_provider", cfg.PaymentProvider),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry flush failed", zap.Error(err))
		}
	}
}

func setupRouter(cfg *config.Config, database *sql.DB, gateway payment.Gateway, limiter *middleware.Limiter, rec *metrics.Recorder) http.Handler {
	stock := inventory.NewLedger(rec)
	txs := ledger.NewStore(database, rec)
	orderRepo := order.NewRepository()

	orderSvc := order.NewService(database, orderRepo, cart.NewRepository(), product.NewRepository(),
		stock, txs, gateway, rec)
	returnSvc := returns.NewService(database, returns.NewRepository(), orderRepo, stock, txs, gateway, rec)

	return handler.NewRouter(handler.Deps{
		Orders:    orderSvc,
		Returns:   returnSvc,
		Ledger:    txs,
		Drift:     ledger.NewReconciler(database),
		DB:        database,
		JWTSecret: cfg.JWTSecret,
		Limiter:   limiter,
	})
}

// newLimiter shares buckets through Redis when REDIS_ADDR is set and keeps
// them in memory otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (*middleware.Limiter, func()) {
	if cfg.RedisAddr == "" {
		store := middleware.NewMemoryStore(0)
		go store.Run(ctx)
		return middleware.NewLimiter(store, cfg.InternalSecretKey), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.L().Warn("redis unreachable, rate limiting will fail open until it recovers",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	}
	return middleware.NewLimiter(middleware.NewRedisStore(client), cfg.InternalSecretKey), func() {
		_ = client.Close()
	}
}
