package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
	"github.com/visionsense/video-features-service/internal/infra/metrics"
)

// ExtractJobUseCase serves the queue path: download the video from object
// storage, run the pipeline, store the result, and publish a status message.
// A returned error means the delivery should be retried; nil acknowledges
// the message (including permanently failed jobs, which go to the DLQ).
type ExtractJobUseCase struct {
	storage   port.VideoStorage
	pipeline  FeatureExtractor
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ExtractJobConfig struct {
	TempDir    string
	MaxRetries int
}

func NewExtractJobUseCase(
	storage port.VideoStorage,
	pipeline FeatureExtractor,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ExtractJobConfig,
) *ExtractJobUseCase {
	return &ExtractJobUseCase{
		storage:   storage,
		pipeline:  pipeline,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ExtractJobUseCase) Execute(ctx context.Context, rawMsg []byte, attempt int) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractJobUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)
	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("video_key", msg.VideoKey),
		zap.Int("attempt", attempt),
	)

	metrics.ActiveExtractions.Inc()
	defer metrics.ActiveExtractions.Dec()

	result, err := uc.runJob(ctx, msg, log)
	if err != nil {
		// An unreadable video will not become readable on retry.
		if errors.Is(err, entity.ErrInvalidVideo) || attempt >= uc.maxRetry {
			return uc.handlePermanentFailure(ctx, msg, rawMsg, attempt, err, log)
		}
		uc.publishStatus(ctx, msg, entity.ExtractionStatusFailed, nil, err.Error(), attempt, log)
		return fmt.Errorf("retryable failure (attempt %d/%d): %w", attempt, uc.maxRetry, err)
	}

	uc.publishStatus(ctx, msg, entity.ExtractionStatusCompleted, result, "", attempt, log)

	metrics.ExtractionsTotal.WithLabelValues("completed").Inc()
	metrics.FramesSampledTotal.Add(float64(result.FramesProcessed))
	metrics.ExtractionDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	log.Info("job completed",
		zap.Int("frames_processed", result.FramesProcessed),
		zap.Int("hard_cuts", result.HardCuts),
	)
	return nil
}

func (uc *ExtractJobUseCase) runJob(
	ctx context.Context,
	msg entity.ExtractionRequestMessage,
	log *zap.Logger,
) (*entity.FeatureResult, error) {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, msg.JobID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	dlStart := time.Now()
	dlCtx, dlSpan := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath); err != nil {
		dlSpan.End()
		return nil, fmt.Errorf("download video: %w", err)
	}
	dlSpan.End()
	metrics.ExtractionDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	exStart := time.Now()
	exCtx, exSpan := tracer.Start(ctx, "extract_features")
	result, err := uc.pipeline.Extract(exCtx, videoPath)
	exSpan.End()
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("extract features: %w", err)
	}
	metrics.ExtractionDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	resultKey := fmt.Sprintf("%s/features_%s.json", msg.UserID, msg.JobID.String())
	upCtx, upSpan := tracer.Start(ctx, "upload_result")
	err = uc.storage.UploadResult(upCtx, resultKey, bytes.NewReader(payload), int64(len(payload)))
	upSpan.End()
	if err != nil {
		return nil, fmt.Errorf("upload result: %w", err)
	}

	log.Info("result stored", zap.String("result_key", resultKey))
	return result, nil
}

func (uc *ExtractJobUseCase) handlePermanentFailure(
	ctx context.Context,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	attempt int,
	cause error,
	log *zap.Logger,
) error {
	log.Warn("job permanently failed, sending to DLQ", zap.Error(cause))

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, cause.Error())
	uc.publishStatus(ctx, msg, entity.ExtractionStatusFailed, nil, cause.Error(), attempt, log)

	metrics.ExtractionsTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, msg.JobID.String(), msg.VideoKey, cause.Error())
	}
	return nil
}

func (uc *ExtractJobUseCase) publishStatus(
	ctx context.Context,
	msg entity.ExtractionRequestMessage,
	status entity.ExtractionStatus,
	result *entity.FeatureResult,
	errMsg string,
	attempt int,
	log *zap.Logger,
) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:        msg.JobID,
		UserID:       msg.UserID,
		Status:       status,
		VideoKey:     msg.VideoKey,
		Result:       result,
		ErrorMessage: errMsg,
		Attempt:      attempt,
		MaxAttempts:  uc.maxRetry,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
