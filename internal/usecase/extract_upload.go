package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/infra/metrics"
	"github.com/visionsense/video-features-service/internal/upload"
)

// FeatureExtractor is the pipeline as consumed by the use cases.
type FeatureExtractor interface {
	Extract(ctx context.Context, videoPath string) (*entity.FeatureResult, error)
}

// ExtractUploadUseCase serves the network path: validate the upload, admit
// it through the guard, run the pipeline, and guarantee the temp asset is
// released whether the pipeline succeeds, fails, or is cancelled.
type ExtractUploadUseCase struct {
	guard       *upload.Guard
	pipeline    FeatureExtractor
	allowedExts map[string]struct{}
	mimePrefix  string
	logger      *zap.Logger
}

func NewExtractUploadUseCase(
	guard *upload.Guard,
	pipeline FeatureExtractor,
	allowedExtensions []string,
	mimePrefix string,
	logger *zap.Logger,
) *ExtractUploadUseCase {
	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &ExtractUploadUseCase{
		guard:       guard,
		pipeline:    pipeline,
		allowedExts: exts,
		mimePrefix:  mimePrefix,
		logger:      logger,
	}
}

// Execute processes one uploaded video. declaredSize is the client-declared
// byte count, negative when unknown.
func (uc *ExtractUploadUseCase) Execute(
	ctx context.Context,
	body io.Reader,
	declaredSize int64,
	filename string,
	contentType string,
) (*entity.FeatureResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractUploadUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("upload.filename", filename))

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := uc.allowedExts[ext]; !ok {
		return nil, fmt.Errorf("extension %q: %w", ext, entity.ErrUnsupportedMedia)
	}
	if !strings.HasPrefix(contentType, uc.mimePrefix) {
		return nil, fmt.Errorf("content type %q: %w", contentType, entity.ErrUnsupportedMedia)
	}

	recvStart := time.Now()
	recvCtx, recvSpan := tracer.Start(ctx, "receive_upload")
	asset, err := uc.guard.Receive(recvCtx, body, declaredSize, ext)
	recvSpan.End()
	if err != nil {
		return nil, err
	}
	defer asset.Release()
	metrics.ExtractionDuration.WithLabelValues("receive").Observe(time.Since(recvStart).Seconds())

	log := uc.logger.With(zap.String("temp_asset", asset.Path), zap.Int64("bytes", asset.Size))
	log.Info("upload admitted")

	metrics.ActiveExtractions.Inc()
	defer metrics.ActiveExtractions.Dec()

	extractStart := time.Now()
	extractCtx, extractSpan := tracer.Start(ctx, "extract_features")
	result, err := uc.pipeline.Extract(extractCtx, asset.Path)
	extractSpan.End()
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		log.Error("extraction failed", zap.Error(err))
		return nil, err
	}
	metrics.ExtractionDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())
	metrics.ExtractionsTotal.WithLabelValues("completed").Inc()
	metrics.FramesSampledTotal.Add(float64(result.FramesProcessed))

	return result, nil
}
