package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"salonledger/internal/cache"
	"salonledger/internal/config"
	"salonledger/internal/httpapi"
	"salonledger/internal/logger"
	"salonledger/internal/metrics"
	"salonledger/internal/service"
	"salonledger/internal/store"
	"salonledger/internal/store/memory"
	pgstore "salonledger/internal/store/postgres"
)

const devAuthSecret = "salonledger-dev-secret-change-me-0000"

func main() {
	cfg := config.Load()

	zlog, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		zlog.Fatal("invalid security configuration", zap.Error(err))
	}
	if cfg.AuthSecret == "" {
		zlog.Warn("AUTH_SECRET not set; using the development secret")
		cfg.AuthSecret = devAuthSecret
	}
	if cfg.DotEnvLoaded {
		zlog.Info("loaded .env file")
	}

	metrics.Register()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var docs store.DocumentStore
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		docs = pg
		closers = append(closers, pg.Close)
		zlog.Info("document store: postgres")
	} else {
		docs = memory.NewSeeded()
		zlog.Info("document store: in-memory")
	}

	reports := cache.AnalyticsCache(cache.NoopAnalyticsCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisAnalyticsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, analytics will not be cached", zap.Error(err))
			_ = redisCache.Close()
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			zlog.Info("analytics cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		zlog.Info("analytics cache: noop")
	}

	loc, err := cfg.Location()
	if err != nil {
		zlog.Warn("falling back to UTC for sale dates", zap.Error(err))
	}

	svc := service.New(docs, reports, zlog, service.Options{
		DefaultTaxPercent: cfg.DefaultTaxPercent,
		Location:          loc,
		AnalyticsTTL:      cfg.AnalyticsTTL(),
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), svc)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, zlog)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("salon ledger listening", zap.String("addr", cfg.Address()), zap.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Error("close error", zap.Error(err))
		}
	}

	zlog.Info("server stopped")
}

// validateSecurityConfig rejects settings that are unsafe to serve with. A
// missing AUTH_SECRET is tolerated outside production only.
func validateSecurityConfig(cfg config.Config) error {
	production := cfg.Environment == "production"
	switch {
	case cfg.AuthSecret == "" && production:
		return fmt.Errorf("AUTH_SECRET must be set in production")
	case cfg.AuthSecret != "" && len(cfg.AuthSecret) < 32:
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters")
	}
	if production && cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a concrete origin in production")
	}
	if cfg.DefaultTaxPercent > 100 {
		return fmt.Errorf("DEFAULT_TAX_PERCENT must be between 0 and 100")
	}
	return nil
}
