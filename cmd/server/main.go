package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/tradedesk/internal/application/composition"
	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/erp/tradedesk/internal/infrastructure/cache"
	"github.com/erp/tradedesk/internal/infrastructure/config"
	"github.com/erp/tradedesk/internal/infrastructure/logger"
	"github.com/erp/tradedesk/internal/infrastructure/persistence"
	"github.com/erp/tradedesk/internal/infrastructure/remote"
	"github.com/erp/tradedesk/internal/infrastructure/telemetry"
	"github.com/erp/tradedesk/internal/interfaces/http/handler"
	"github.com/erp/tradedesk/internal/interfaces/http/middleware"
	"github.com/erp/tradedesk/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	shutdownTimeout   = 30 * time.Second
	rateLimiterIdle   = 10 * time.Minute
	rateLimiterSweeps = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting tradedesk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, logger.Component(log, "telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.GormLevel(cfg.Log.Level),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
			DBName:  cfg.Database.DBName,
		}))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	batchRepo := persistence.NewGormStockBatchRepository(db.DB)
	repos := composition.Repositories{
		Products: persistence.NewGormProductRepository(db.DB),
		Formulas: persistence.NewGormDeductionFormulaRepository(db.DB),
		Batches:  batchRepo,
		Stock:    batchRepo,
		Parties:  persistence.NewGormPartyRepository(db.DB),
		Orders:   persistence.NewGormOrderRepository(db.DB),
	}

	var caches map[string]handler.CacheStatsReporter
	if cfg.Cache.Enabled {
		store, err := cache.NewStore(cfg.Redis, cfg.App.Env != "production", log)
		if err != nil {
			log.Fatal("Failed to initialize reference cache", zap.Error(err))
		}
		defer closeStore(store, log)

		products := cache.NewCachedProductRepository(repos.Products, store, cfg.Cache.KeyPrefix, cfg.Cache.TTL, log)
		formulas := cache.NewCachedFormulaRepository(repos.Formulas, store, cfg.Cache.KeyPrefix, cfg.Cache.TTL, log)
		repos.Products = products
		repos.Formulas = formulas
		caches = map[string]handler.CacheStatsReporter{"products": products, "formulas": formulas}
	}

	composer := trade.NewComposer(trade.FeeSchedule{
		HandlingRatePerTon:      cfg.Costing.HandlingRatePerTon,
		StorageRatePerTonPerDay: cfg.Costing.StorageRatePerTonPerDay,
		TonSize:                 cfg.Costing.TonSize,
		DefaultPreviewDays:      cfg.Costing.DefaultPreviewDays,
		Location:                cfg.Costing.Location(),
	})
	sessions := composition.NewSessionStore(cfg.Session.IdleTTL)
	service := composition.NewService(sessions, repos, composer, logger.Component(log, "composition"))

	if cfg.Remote.BaseURL != "" {
		var calc catalog.NetWeightCalculator = remote.NewNetWeightClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Timeout)
		service.SetRemoteCalculator(calc)
		log.Info("Remote deduction formulas enabled", zap.String("base_url", cfg.Remote.BaseURL))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, rateLimiterIdle)
		go sweepLimiter(ctx, limiter)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.App.Name,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		RateLimiter:    limiter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	system := handler.NewSystemHandler(cfg.App.Name, version, db, sessions, log)
	for name, r := range caches {
		system.WithCache(name, r)
	}
	engine.GET("/health", system.Health)

	router.NewRouter(engine).
		Register(system, handler.NewCompositionHandler(service, logger.Component(log, "http"))).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully", zap.Int("open_sessions", sessions.Len()))
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(rateLimiterSweeps)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}

func closeStore(store cache.Store, log *zap.Logger) {
	switch s := store.(type) {
	case io.Closer:
		if err := s.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	case *cache.InMemoryStore:
		s.Stop()
	}
}
