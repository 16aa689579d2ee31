package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/tripsearch/internal/breaker"
	"github.com/dharmasatrya/tripsearch/internal/cache"
	"github.com/dharmasatrya/tripsearch/internal/handler"
	"github.com/dharmasatrya/tripsearch/internal/orchestrator"
	"github.com/dharmasatrya/tripsearch/internal/providers"
	"github.com/dharmasatrya/tripsearch/internal/ratelimit"
)

type Config struct {
	Port                string
	Env                 string
	CacheEnabled        bool
	RedisHost           string
	RedisPort           string
	RedisTTL            time.Duration
	ProviderTimeout     time.Duration
	MaxRetries          int
	BackoffBase         time.Duration
	FailoverEnabled     bool
	BreakerThreshold    int
	BreakerCooldown     time.Duration
	HealthCheckInterval time.Duration
	ProviderFailureRate float64
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	log := newLogger(cfg.Env)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Validator = handler.NewRequestValidator()

	var searchCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err != nil {
			log.Error("redis connection failed", "err", err)
			os.Exit(1)
		}
		searchCache = redisCache
		log.Info("redis cache enabled", "addr", cfg.RedisHost+":"+cfg.RedisPort, "ttl", cfg.RedisTTL)
	} else {
		searchCache = cache.NewNoOpCache()
		log.Info("cache disabled")
	}
	defer searchCache.Close()

	limiter := ratelimit.NewSupplierLimiter(ratelimit.DefaultConfig())
	limiter.SetLimit("aerolink", 20, 30)
	limiter.SetLimit("skyvista", 10, 20)
	limiter.SetLimit("staycove", 15, 25)
	limiter.SetLimit("innloop", 15, 25)

	svc := orchestrator.New(orchestrator.Config{
		ProviderTimeout: cfg.ProviderTimeout,
		MaxRetries:      cfg.MaxRetries,
		BackoffBase:     cfg.BackoffBase,
		FailoverEnabled: cfg.FailoverEnabled,
		Breaker: breaker.Config{
			FailureThreshold: cfg.BreakerThreshold,
			Cooldown:         cfg.BreakerCooldown,
		},
		RateLimiter: limiter,
	}, searchCache, log)

	registerProviders(svc, cfg, log)

	searchHandler := handler.NewSearchHandler(svc, log)
	api := e.Group("/api/v1")
	searchHandler.Register(api)
	e.GET("/health", handler.HealthHandler)

	// Background health probe with its own lifecycle, stopped on shutdown.
	probeCtx, stopProbes := context.WithCancel(context.Background())
	defer stopProbes()
	go runHealthProbes(probeCtx, svc, cfg.HealthCheckInterval, log)

	go func() {
		log.Info("starting booking search server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info("server stopped", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopProbes()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}

func newLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "development" {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func registerProviders(svc *orchestrator.Service, cfg Config, log *slog.Logger) {
	list := []providers.Provider{
		providers.NewAeroLinkProvider(providers.AeroLinkConfig{
			APIKey:      getEnv("AEROLINK_API_KEY", ""),
			BaseURL:     getEnv("AEROLINK_BASE_URL", ""),
			FailureRate: cfg.ProviderFailureRate,
		}),
		providers.NewSkyVistaProvider(providers.SkyVistaConfig{
			APIKey:      getEnv("SKYVISTA_API_KEY", ""),
			BaseURL:     getEnv("SKYVISTA_BASE_URL", ""),
			FailureRate: cfg.ProviderFailureRate,
		}),
		providers.NewStayCoveProvider(providers.StayCoveConfig{
			APIKey:      getEnv("STAYCOVE_API_KEY", ""),
			BaseURL:     getEnv("STAYCOVE_BASE_URL", ""),
			FailureRate: cfg.ProviderFailureRate,
		}),
		providers.NewInnLoopProvider(providers.InnLoopConfig{
			APIKey:      getEnv("INNLOOP_API_KEY", ""),
			BaseURL:     getEnv("INNLOOP_BASE_URL", ""),
			FailureRate: cfg.ProviderFailureRate,
		}),
	}

	for _, p := range list {
		if err := svc.Register(p); err != nil {
			log.Error("provider registration failed", "provider", p.Name(), "err", err)
			os.Exit(1)
		}
	}
	log.Info("providers registered", "count", len(list))
}

func runHealthProbes(ctx context.Context, svc *orchestrator.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.TriggerHealthCheck(ctx)
			log.Debug("health probe cycle complete")
		case <-ctx.Done():
			return
		}
	}
}

func loadConfig() Config {
	return Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "development"),
		CacheEnabled:        getEnvBool("CACHE_ENABLED", true),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisTTL:            getEnvDuration("CACHE_TTL", 5*time.Minute),
		ProviderTimeout:     getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second),
		MaxRetries:          getEnvInt("MAX_RETRIES", 2),
		BackoffBase:         getEnvDuration("RETRY_BACKOFF_BASE", 200*time.Millisecond),
		FailoverEnabled:     getEnvBool("FAILOVER_ENABLED", true),
		BreakerThreshold:    getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:     getEnvDuration("BREAKER_COOLDOWN", 30*time.Second),
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", time.Minute),
		ProviderFailureRate: getEnvFloat("PROVIDER_FAILURE_RATE", 0.1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
