package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/visionsense/video-features-service/internal/api"
	"github.com/visionsense/video-features-service/internal/extractor"
	"github.com/visionsense/video-features-service/internal/infra/config"
	"github.com/visionsense/video-features-service/internal/infra/metrics"
	"github.com/visionsense/video-features-service/internal/infra/tracing"
	"github.com/visionsense/video-features-service/internal/infra/vision"
	"github.com/visionsense/video-features-service/internal/upload"
	"github.com/visionsense/video-features-service/internal/usecase"
	"github.com/visionsense/video-features-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video-features-service api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	ledger := upload.NewLedger(cfg.VolumeQuotaBytes)
	guard, err := upload.NewGuard(ledger, cfg.GuardConfig(), log)
	fatalOnErr(err, "create upload guard")

	detector, err := vision.NewObjectDetector(vision.DetectorConfig{
		ModelPath:      cfg.YOLOModelPath,
		ConfigPath:     cfg.YOLOConfigPath,
		ClassNamesPath: cfg.YOLOClassNames,
		Confidence:     cfg.YOLOConfidence,
	})
	fatalOnErr(err, "create object detector")
	defer detector.Close()

	pipeline := extractor.NewPipeline(
		vision.NewDecoder(),
		vision.NewFrameOps(),
		vision.NewTextRecognizer(cfg.OCRLanguage),
		detector,
		cfg.ExtractorConfig(),
		log,
	)

	uc := usecase.NewExtractUploadUseCase(guard, pipeline, cfg.AllowedExtensions, cfg.AllowedMIMEPrefix, log)

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: api.NewRouter(api.NewHandler(uc, log)),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	go func() {
		log.Info("api server listening", zap.Int("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("video-features-service api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
