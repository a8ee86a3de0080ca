package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kbir-dev/FWC-HRMS-sub001/ai"
	"github.com/kbir-dev/FWC-HRMS-sub001/analysis"
	"github.com/kbir-dev/FWC-HRMS-sub001/config"
	"github.com/kbir-dev/FWC-HRMS-sub001/extraction"
	"github.com/kbir-dev/FWC-HRMS-sub001/infrastructure"
	"github.com/kbir-dev/FWC-HRMS-sub001/interfaces"
	"github.com/kbir-dev/FWC-HRMS-sub001/interview"
	"github.com/kbir-dev/FWC-HRMS-sub001/logging"
	"github.com/kbir-dev/FWC-HRMS-sub001/screening"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := infrastructure.NewStore(cfg.DatabaseDSN, logger.With(zap.String("component", "store")))
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}

	queue, err := infrastructure.NewQueue(cfg.RabbitMQURL, logger.With(zap.String("component", "queue")))
	if err != nil {
		logger.Fatal("queue init failed", zap.Error(err))
	}
	defer queue.Close()

	primary, fallback, err := ai.Resolve(ctx, cfg.OpenAIAPIKey, cfg.GeminiAPIKey, logger.With(zap.String("component", "ai")))
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}
	gateway := ai.NewGateway(primary, fallback, logger.With(zap.String("component", "gateway")))

	worker := screening.NewWorker(
		store,
		extraction.New(),
		analysis.New(),
		gateway,
		screening.Config{
			MaxConcurrent:   cfg.Worker.MaxConcurrent,
			StartsPerWindow: cfg.Worker.StartsPerWindow,
			Window:          cfg.Worker.Window,
		},
		logger.With(zap.String("component", "worker")),
	)
	if err := queue.Consume(ctx, cfg.Worker.MaxConcurrent, worker.Process); err != nil {
		logger.Fatal("consumer init failed", zap.Error(err))
	}

	gate := interview.NewGate(store, logger.With(zap.String("component", "gate")))

	router := gin.Default()
	interfaces.NewHTTPHandler(router, store, queue, gateway, gate, cfg.UploadDir, logger.With(zap.String("component", "http")))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
