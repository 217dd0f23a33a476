package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/labelprint/backend/docs"
	labelapp "github.com/labelprint/backend/internal/application/label"
	"github.com/labelprint/backend/internal/infrastructure/auth"
	"github.com/labelprint/backend/internal/infrastructure/config"
	"github.com/labelprint/backend/internal/infrastructure/logger"
	"github.com/labelprint/backend/internal/infrastructure/printing"
	"github.com/labelprint/backend/internal/infrastructure/storage"
	"github.com/labelprint/backend/internal/infrastructure/telemetry"
	"github.com/labelprint/backend/internal/interfaces/http/handler"
	"github.com/labelprint/backend/internal/interfaces/http/middleware"
	"github.com/labelprint/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Label Printing API
//	@version		1.0
//	@description	Renders label records into printable PDF label sheets

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		_ = providers.Shutdown(context.Background())
	}()
	log = telemetry.BridgeLogger(log, providers.Logs, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	// Continuous profiling
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		_ = profiler.Stop()
	}()
	if profiler.IsEnabled() && cfg.Telemetry.ProfilingSpanProfiles {
		providers.EnableSpanProfiles()
	}

	log.Info("Starting label service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("engine", cfg.Renderer.Engine),
	)

	meter := providers.MeterProvider().Meter("labelprint")
	labelMetrics, err := telemetry.NewLabelMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create label metrics", zap.Error(err))
	}

	// PDF engine
	renderer, err := printing.NewRenderer(cfg.Renderer, log)
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	emitterOpts := append(printing.EmitterOptions(cfg.Renderer, cfg.Writer.Title),
		printing.WithEmitterLogger(log.Named("emitter")))

	serviceOpts := []labelapp.ServiceOption{
		labelapp.WithMaxRecords(cfg.HTTP.MaxRecords),
		labelapp.WithServiceLogger(log),
		labelapp.WithServiceMetrics(labelMetrics),
	}

	// Object storage for stored sheets
	if cfg.Storage.Enabled {
		objects, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log.Named("storage")),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err))
		}
		emitterOpts = append(emitterOpts, printing.WithObjectStorage(objects))
		serviceOpts = append(serviceOpts,
			labelapp.WithObjectLocator(objects, cfg.Storage.KeyPrefix, cfg.Storage.PresignExpiration))
		log.Info("Object storage enabled", zap.String("bucket", objects.Bucket()))
	}

	emitter := printing.NewPDFEmitter(renderer, emitterOpts...)
	labelService, err := labelapp.NewLabelService(labelapp.WriterConfig{
		TemplatePath:     cfg.Writer.TemplatePath,
		TemplateEncoding: cfg.Writer.TemplateEncoding,
		ItemsPerPage:     cfg.Writer.ItemsPerPage,
		Stylesheets:      cfg.Writer.Stylesheets,
		BaseURL:          cfg.Writer.BaseURL,
		Columns:          cfg.Writer.Columns,
		PageMargin:       cfg.Writer.PageMargin,
		Title:            cfg.Writer.Title,
	}, emitter, serviceOpts...)
	if err != nil {
		log.Fatal("Failed to initialize label service", zap.Error(err))
	}
	defer func() {
		if err := labelService.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.Profiling(middleware.DefaultProfilingConfig(profiler.IsEnabled())),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(labelService.CanEmit(), cfg.Storage.Enabled)
	engine.GET("/health", systemHandler.Health)

	var authMiddleware gin.HandlerFunc
	if cfg.Auth.Enabled {
		authMiddleware = middleware.BearerAuth(auth.NewTokenService(cfg.Auth), log)
		log.Info("Bearer authentication enabled", zap.String("issuer", cfg.Auth.Issuer))
	}

	// API documentation
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, authMiddleware),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	var apiMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, time.Minute)
		defer limiter.Stop()
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
	}

	labelRoutes := handler.NewLabelHandler(labelService, log).Routes(authMiddleware)
	// Rate limiting runs after authentication so it can key on the client
	for _, m := range apiMiddleware {
		labelRoutes.Use(m)
	}

	r := router.NewRouter(engine)
	r.Register(labelRoutes).Register(systemHandler.Routes())
	r.Setup()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
