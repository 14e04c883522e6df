// Command server runs the distributor inventory reconciliation API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcatalog "github.com/distrib/backend/internal/application/catalog"
	appevent "github.com/distrib/backend/internal/application/event"
	appidentity "github.com/distrib/backend/internal/application/identity"
	appreporting "github.com/distrib/backend/internal/application/reporting"
	apptrade "github.com/distrib/backend/internal/application/trade"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/infrastructure/auth"
	"github.com/distrib/backend/internal/infrastructure/cache"
	"github.com/distrib/backend/internal/infrastructure/config"
	"github.com/distrib/backend/internal/infrastructure/event"
	"github.com/distrib/backend/internal/infrastructure/export"
	"github.com/distrib/backend/internal/infrastructure/logger"
	"github.com/distrib/backend/internal/infrastructure/migration"
	"github.com/distrib/backend/internal/infrastructure/persistence"
	"github.com/distrib/backend/internal/infrastructure/telemetry"
	"github.com/distrib/backend/internal/interfaces/http/handler"
	"github.com/distrib/backend/internal/interfaces/http/middleware"
	"github.com/distrib/backend/internal/interfaces/http/router"
	"github.com/distrib/backend/migrations"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", Version),
	)

	loc, err := cfg.Reconciliation.Location()
	if err != nil {
		return err
	}

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	metrics, err := telemetry.NewReconciliationMetrics(meter)
	if err != nil {
		return err
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:             cfg.Database.DBName,
		WithQueryVariables: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		return err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	migrator, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		return err
	}

	// Redis backs the cycle lock and the token blacklist when available
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-process lock and blacklist", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	locker, err := cache.NewCycleLockerFactory(cfg.Reconciliation, redisClient, cache.WithLogger(log)).Create()
	if err != nil {
		return err
	}

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}

	// Events
	bus := event.NewInMemoryEventBus(log)
	activity := appevent.NewActivityHandler(log, metrics)
	bus.Subscribe(activity, activity.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer shutdown(log, "event bus", bus.Stop)

	// Repositories and services
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	reportRepo := persistence.NewGormWeeklyReportRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := appidentity.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := appidentity.NewUserService(userRepo)

	productService := appcatalog.NewProductService(productRepo)
	productService.SetEventPublisher(bus)

	orderService := apptrade.NewOrderService(orderRepo, productRepo, persistence.NewGormTransactionScope(db.DB))
	orderService.SetEventPublisher(bus)
	orderService.SetMetrics(metrics)

	engine := reconciliation.NewEngine(
		reconciliation.NewCalculator(loc),
		appreporting.NewOrderLedgerSource(orderRepo),
		appreporting.NewReportLedgerSource(reportRepo),
	)
	reportService := appreporting.NewReportService(reportRepo, productRepo, engine, locker)
	reportService.SetEventPublisher(bus)
	reportService.SetMetrics(metrics)
	reportService.SetExporter(export.NewReportWorkbook())

	if cfg.Bootstrap.AdminPassword != "" {
		created, err := userService.Bootstrap(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap administrator: %w", err)
		}
		if created {
			log.Info("Created initial administrator", zap.String("username", cfg.Bootstrap.AdminUsername))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return err
	}

	ginEngine := gin.New()
	if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	ginEngine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Telemetry.ServiceName),
		middleware.HTTPMetrics(meter, log),
		middleware.CORS(corsCfg),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	go loginLimiter.Run(ctx)

	r := router.NewRouter(ginEngine)
	router.RegisterAPI(r, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Product: handler.NewProductHandler(productService),
		Order:   handler.NewOrderHandler(orderService, loc),
		Report:  handler.NewReportHandler(reportService, loc),
		System:  handler.NewSystemHandler(cfg.App.Name, Version, db),
	}, router.APIConfig{
		JWT:          middleware.JWTConfig{JWTService: jwtService, Blacklist: blacklist, Logger: log},
		LoginLimiter: loginLimiter,
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("time_zone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

// shutdown runs fn with a bounded context, logging failures
func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
