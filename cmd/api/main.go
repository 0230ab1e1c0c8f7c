package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marmot-vision/marmot/internal/application"
	"github.com/marmot-vision/marmot/internal/detector"
	infraKafka "github.com/marmot-vision/marmot/internal/infrastructure/kafka"
	infraMongo "github.com/marmot-vision/marmot/internal/infrastructure/mongodb"
	"github.com/marmot-vision/marmot/internal/pipeline"
	"github.com/marmot-vision/marmot/internal/video"
	"github.com/marmot-vision/marmot/pkg/kafka"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
	"github.com/marmot-vision/marmot/pkg/middleware"
	"github.com/marmot-vision/marmot/pkg/mongodb"
)

const serviceName = "marmot-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting marmot monitoring API")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	middleware.InitValidator()

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	workstationRepo := infraMongo.NewWorkstationRepository(mongoClient.Database())
	zoneRepo := infraMongo.NewZoneRepository(mongoClient.Database())
	detectionRepo := infraMongo.NewDetectionRepository(mongoClient.Database())
	trackingRepo := infraMongo.NewTrackingSessionRepository(mongoClient.Database())

	if config.SeedSampleData {
		if err := application.SeedSampleData(ctx, workstationRepo, zoneRepo, logger); err != nil {
			logger.WithError(err).Warn("Failed to seed sample data")
		}
	}

	// Kafka
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	publisher := infraKafka.NewEventPublisher(kafkaProducer, logger, m)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Detection worker process
	detectorWorker := detector.NewWorker(config.Detector, logger, m)
	if err := detectorWorker.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start detection worker")
		os.Exit(1)
	}
	defer detectorWorker.Stop()
	logger.Info("Detection worker started", "command", config.Detector.Command)

	det := detector.NewBreakerDetector(detectorWorker, logger, m)

	// Video capture and processing pipeline
	manager := video.NewManager(video.NewFFmpegSourceFactory(logger), publisher, logger, m)
	defer manager.Shutdown(config.StopTimeout)

	sink := application.NewResultHandler(
		manager, workstationRepo, zoneRepo, detectionRepo, trackingRepo, publisher, logger, m)
	manager.SetStreamListener(sink.HandleStreamStatus)

	processor := pipeline.NewProcessor(manager, det, sink, logger, m)
	processor.SetWorkerCount(config.PipelineWorkers)
	processor.Start(ctx)
	defer processor.Stop(config.StopTimeout)

	// Application services
	workstationService := application.NewWorkstationService(workstationRepo, zoneRepo, logger)
	zoneService := application.NewZoneService(zoneRepo, workstationRepo, logger)
	streamService := application.NewStreamService(manager, processor, detectorWorker, workstationRepo, logger)
	cleaner := application.NewCleaner(manager, detectionRepo, trackingRepo, logger)
	detectionService := application.NewDetectionService(det, manager, cleaner, logger)

	// HTTP router
	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		api.GET("/status", systemStatusHandler(streamService))
		api.GET("/system/statistics", systemStatisticsHandler(streamService))

		workstations := api.Group("/workstations")
		{
			workstations.POST("", createWorkstationHandler(workstationService, logger))
			workstations.GET("", listWorkstationsHandler(workstationService, logger))
			workstations.GET("/:workstationId", getWorkstationHandler(workstationService, logger))
			workstations.PUT("/:workstationId", updateWorkstationHandler(workstationService, logger))
			workstations.DELETE("/:workstationId", deleteWorkstationHandler(workstationService, logger))
			workstations.GET("/:workstationId/status", workstationStatusHandler(workstationService, logger))
		}

		zones := api.Group("/zones")
		{
			zones.POST("", createZoneHandler(zoneService, logger))
			zones.GET("", listZonesHandler(zoneService, logger))
			zones.GET("/:zoneId", getZoneHandler(zoneService, logger))
			zones.PUT("/:zoneId", updateZoneHandler(zoneService, logger))
			zones.DELETE("/:zoneId", deleteZoneHandler(zoneService, logger))
			zones.GET("/:zoneId/status", zoneStatusHandler(zoneService, logger))
		}

		streams := api.Group("/video-streams")
		{
			streams.POST("", createStreamHandler(streamService, logger))
			streams.GET("", listStreamsHandler(streamService))
			streams.POST("/test", testStreamHandler(streamService, logger))
			streams.GET("/:streamId", getStreamHandler(streamService, logger))
			streams.PUT("/:streamId", updateStreamHandler(streamService, logger))
			streams.DELETE("/:streamId", deleteStreamHandler(streamService, logger))
			streams.GET("/:streamId/status", streamStatusHandler(streamService, logger))
			streams.GET("/:streamId/results", streamResultsHandler(streamService, logger))
			streams.GET("/:streamId/zones/:zoneId/efficiency", zoneEfficiencyHandler(streamService, logger))
		}

		detection := api.Group("/detection")
		{
			detection.POST("/image", detectImageHandler(detectionService, logger))
			detection.GET("/tracking/history/:trackId", trackingHistoryHandler(detectionService, logger))
			detection.GET("/zones/:zoneId/analysis", zoneAnalysisHandler(detectionService, logger))
			detection.POST("/tracking/cleanup", cleanupHandler(detectionService, logger))
			detection.GET("/settings", getDetectorSettingsHandler(streamService, logger))
			detection.PUT("/settings", updateDetectorSettingsHandler(streamService, logger))
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	SeedSampleData  bool
	PipelineWorkers int
	StopTimeout     time.Duration
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
	Detector        detector.WorkerConfig
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8000"),
		SeedSampleData:  getEnv("SEED_SAMPLE_DATA", "false") == "true",
		PipelineWorkers: getEnvInt("PIPELINE_WORKERS", 2),
		StopTimeout:     5 * time.Second,
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "marmot"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: 1,
		},
		Detector: detector.WorkerConfig{
			Command:   getEnv("DETECTOR_COMMAND", "scripts/run_inference_worker.sh"),
			ModelPath: getEnv("DETECTOR_MODEL", "models/yolo11n.pt"),
			Settings:  detector.DefaultSettings(),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
