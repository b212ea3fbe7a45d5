package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/alerts"
	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/catalog/sqlsource"
	"github.com/edgecomet/catalog/internal/common/config"
	"github.com/edgecomet/catalog/internal/common/configtypes"
	logutil "github.com/edgecomet/catalog/internal/common/logger"
	"github.com/edgecomet/catalog/internal/common/metricsserver"
	"github.com/edgecomet/catalog/internal/common/redis"
	"github.com/edgecomet/catalog/internal/environment"
	"github.com/edgecomet/catalog/internal/metrics"
	"github.com/edgecomet/catalog/internal/reports"
	"github.com/edgecomet/catalog/internal/server"
)

func main() {
	configPath := flag.String("c", "configs/catalog-service.yaml",
		"Path to catalog-service configuration file")
	flag.Parse()

	// Initialize logger (will be reconfigured from config)
	initialLogger, err := logutil.NewDefaultLogger()
	if err != nil {
		panic(err)
	}

	initialLogger.Info("Loading configuration", zap.String("path", *configPath))

	absPath, err := config.GetConfigPath(*configPath)
	if err != nil {
		initialLogger.Fatal("Invalid config path", zap.Error(err))
	}

	configMgr, err := config.NewServiceConfigManager(absPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg := configMgr.GetConfig()

	// INFO during startup even if a higher level is configured
	dynamicLogger, err := logutil.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	logger := dynamicLogger.Logger

	classifier := environment.New(cfg.Environment)

	logger.Info("Catalog service starting",
		zap.String("environment", classifier.Name()),
		zap.Bool("cache_enabled", classifier.IsProduction()),
		zap.String("listen", cfg.Server.Listen))

	ctx := context.Background()

	metricsCollector := metrics.NewMetricsCollector(cfg.Metrics.Namespace, logger)

	metricsServer, err := metricsserver.Start(cfg.Metrics, metricsCollector, logger)
	if err != nil {
		logger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Cache.Backend == configtypes.CacheBackendRedis || cfg.Reports.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	store, err := cache.NewStore(cfg.Cache, redisClient, dynamicLogger.Component("cache"))
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	db, err := sqlsource.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	productsRenderer := sqlsource.NewProductsRenderer(db, cfg.Database.QueryTimeout.ToDuration(), dynamicLogger.Component("sqlsource"))

	sink, err := alerts.SinkFromConfig(ctx, cfg.Alerts, classifier.Name(), dynamicLogger.Component("alerts"))
	if err != nil {
		logger.Fatal("Failed to create alert sink", zap.Error(err))
	}
	dispatcher := alerts.NewDispatcher(sink, cfg.Alerts.QueueSize, metricsCollector, dynamicLogger.Component("alerts"))

	catalogService := catalog.NewService(productsRenderer, store, classifier, dispatcher, metricsCollector, dynamicLogger.Component("catalog"))

	var (
		runner     *reports.Runner
		pdfPrinter *reports.ChromePDFPrinter
	)
	if cfg.Reports.Enabled {
		runner, pdfPrinter = startReports(ctx, cfg, redisClient, productsRenderer, metricsCollector, dynamicLogger)
	}

	var healthCheck server.HealthCheck
	if redisClient != nil {
		healthCheck = redisClient.HealthCheck
	}

	// a nil *reports.Runner must not reach the server as a non-nil interface
	var reportRunner server.ReportRunner
	if runner != nil {
		reportRunner = runner
	}

	httpServer := server.NewServer(catalogService, reportRunner, healthCheck, metricsCollector,
		cfg.Internal.AuthKey, cfg.Server.Timeout.ToDuration(), dynamicLogger.Component("server"))
	if err := httpServer.Start(cfg.Server.Listen); err != nil {
		logger.Fatal("HTTP server failed to start", zap.Error(err))
	}

	logger.Info("Catalog service ready", zap.String("listen", httpServer.Addr()))

	dynamicLogger.SwitchToConfiguredLevel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	dynamicLogger.EnsureInfoLevelForShutdown()
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// stop taking requests first so no new jobs or alerts arrive
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if runner != nil {
		if err := runner.Shutdown(shutdownCtx); err != nil {
			logger.Error("Report runner shutdown error", zap.Error(err))
		}
	}
	if pdfPrinter != nil {
		pdfPrinter.Close()
	}

	if err := dispatcher.Close(); err != nil {
		logger.Error("Alert dispatcher shutdown error", zap.Error(err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	logger.Info("Catalog service stopped")
	_ = logger.Sync()
}

func startReports(
	ctx context.Context,
	cfg *configtypes.ServiceConfig,
	redisClient *redis.Client,
	products *sqlsource.ProductsRenderer,
	metricsCollector *metrics.MetricsCollector,
	dynamicLogger *logutil.DynamicLogger,
) (*reports.Runner, *reports.ChromePDFPrinter) {
	logger := dynamicLogger.Component("reports")

	workers, err := reports.WorkerCount(cfg.Reports.Workers)
	if err != nil {
		logger.Fatal("Invalid reports.workers", zap.Error(err))
	}

	blobs, err := reports.BlobStoreFromConfig(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to create blob store", zap.Error(err))
	}

	var (
		printer    reports.PDFPrinter
		pdfPrinter *reports.ChromePDFPrinter
	)
	if cfg.Reports.PDF.Enabled {
		pdfPrinter, err = reports.NewChromePDFPrinter(cfg.Reports.PDF, logger)
		if err != nil {
			logger.Fatal("Failed to start Chrome for PDF reports", zap.Error(err))
		}
		printer = pdfPrinter
	}

	registry := reports.NewRegistry()
	if err := registry.Register(reports.ProductsReportType, reports.NewProductsFactory(products, printer)); err != nil {
		logger.Fatal("Failed to register report", zap.Error(err))
	}

	runner := reports.NewRunner(reports.RunnerConfig{
		Workers:    workers,
		QueueSize:  cfg.Reports.QueueSize,
		JobTimeout: cfg.Reports.JobTimeout.ToDuration(),
	}, registry, blobs, reports.NewStatusStore(redisClient, cfg.Reports.StatusTTL.ToDuration()), metricsCollector, logger)

	metricsCollector.UpdateWorkers(workers)
	runner.Start()
	return runner, pdfPrinter
}
