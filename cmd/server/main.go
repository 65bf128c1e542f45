package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	opsgrpc "vehicle-checkpoint-backend/internal/api/grpc"
	httpapi "vehicle-checkpoint-backend/internal/api/http"
	"vehicle-checkpoint-backend/internal/app"
	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/device"
	"vehicle-checkpoint-backend/internal/jobs"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/obs"
	"vehicle-checkpoint-backend/internal/scheduler"
	"vehicle-checkpoint-backend/internal/security"
	"vehicle-checkpoint-backend/internal/service"
	"vehicle-checkpoint-backend/internal/storage"
	"vehicle-checkpoint-backend/internal/workflow"
)

var version = "dev"

const healthProbeInterval = 15 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Vehicle Checkpoint Backend...", "version", version, "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "driver", cfg.Database.Driver, "estimator", cfg.Estimator.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, app.TracingConfig(cfg.Tracing), version)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize store
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize image storage
	logger.Info("Using local image storage", "dir", cfg.Storage.Dir)
	images, err := storage.NewLocalStorageService(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	est, err := app.NewEstimator(ctx, cfg.Estimator)
	if err != nil {
		log.Fatalf("Failed to initialize estimator: %v", err)
	}

	publisher, err := app.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	defer publisher.Close()

	emailSvc := app.NewEmailService(cfg.SendGrid)

	// Initialize Services
	settlementSvc := app.NewSettlementService(cfg, store, publisher, emailSvc)
	checkpointSvc := service.NewCheckpointService(
		store.BookingRepository,
		store.CheckRecordRepository,
		workflow.Dependencies{
			Capture:       device.NewStorageCapture(images, cfg.Storage.MaxImageBytes),
			Estimator:     est,
			Settlement:    settlementSvc,
			Submitter:     settlementSvc,
			LocateTimeout: cfg.Session.LocateTimeout,
		},
		cfg.Session.TTL,
	)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// HTTP API
	router := httpapi.NewRouter(
		httpapi.NewCheckpointHandler(checkpointSvc, cfg.Server.MaxUploadBytes),
		httpapi.NewSettlementHandler(settlementSvc),
		httpapi.NewImageHandler(images),
		httpapi.NewAuthMiddleware(tokenManager),
		func(r *http.Request) error { return store.Ping(r.Context()) },
	)
	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// gRPC ops port
	var ops *opsgrpc.OpsServer
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		ops = opsgrpc.NewOpsServer(tokenManager, store.Ping)
		go ops.WatchHealth(ctx, healthProbeInterval)
		go func() {
			logger.Info("gRPC ops server listening", "address", cfg.GetGRPCAddress())
			if err := ops.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Session sweeping runs here because sessions live in this process
	cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(&jobs.Services{
		Checkpoint: checkpointSvc,
		Settlement: settlementSvc,
		Email:      emailSvc,
	}, cfg))
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	cronScheduler.Start()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	cronScheduler.Stop()
	if ops != nil {
		ops.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	closed := checkpointSvc.SweepExpired(time.Now().Add(cfg.Session.TTL + time.Second))
	logger.Info("Closed open check sessions", "count", closed)
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
