// Package extractor implements the single-pass frame-sampling pipeline that
// derives the four structural and temporal video signals. All per-session
// state lives in analyzer values constructed fresh for each Extract call;
// the heavy numerical work is delegated to capability providers behind the
// domain ports.
package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
)

// Config carries the tuning values for one extraction run. It is immutable
// once passed in; analyzers never read ambient configuration.
type Config struct {
	FrameStride      int
	ResizeWidth      int
	ShotThreshold    float64
	TextSampleStride int
	TextMinChars     int
	DetectionStride  int
	Farneback        port.FarnebackParams
	Histogram        port.HistogramParams
}

type Pipeline struct {
	decoder    port.VideoDecoder
	ops        port.FrameOps
	recognizer port.TextRecognizer
	detector   port.ObjectDetector
	cfg        Config
	logger     *zap.Logger
}

func NewPipeline(
	decoder port.VideoDecoder,
	ops port.FrameOps,
	recognizer port.TextRecognizer,
	detector port.ObjectDetector,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		decoder:    decoder,
		ops:        ops,
		recognizer: recognizer,
		detector:   detector,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract runs one full decode pass over the video at videoPath and returns
// the aggregated FeatureResult. On any failure the decoder session and all
// retained analyzer buffers are released and no partial result is produced.
func (p *Pipeline) Extract(ctx context.Context, videoPath string) (*entity.FeatureResult, error) {
	session, err := p.decoder.Open(videoPath)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	source := NewFrameSource(session, p.ops, p.cfg.FrameStride, p.cfg.ResizeWidth)
	shots := NewShotCutDetector(p.ops, p.cfg.Histogram, p.cfg.ShotThreshold)
	defer shots.Close()
	motion := NewMotionAnalyzer(p.ops, p.cfg.Farneback)
	defer motion.Close()
	text := NewTextPresenceSampler(p.recognizer, p.cfg.TextSampleStride, p.cfg.TextMinChars)
	detections := NewDetectionSampler(p.detector, p.cfg.DetectionStride)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, ok, err := source.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := observeFrame(ctx, frame, shots, motion, text, detections); err != nil {
			return nil, fmt.Errorf("analyze frame %d: %w", frame.Index, err)
		}
	}

	if source.Processed() == 0 {
		return nil, fmt.Errorf("%s: no readable frames: %w", videoPath, entity.ErrInvalidVideo)
	}

	meta := session.Meta()
	people, objects := detections.Finalize()
	result := newFeatureResult(
		videoPath, meta,
		source.Processed(),
		shots.Finalize(),
		motion.Finalize(),
		text.Finalize(),
		people, objects,
	)

	p.logger.Info("features extracted",
		zap.String("video_path", result.VideoPath),
		zap.Int("frames_processed", result.FramesProcessed),
		zap.Int("hard_cuts", result.HardCuts),
		zap.Float64("avg_motion_magnitude", result.AvgMotionMagnitude),
	)
	return result, nil
}

// observeFrame feeds one sampled frame to every analyzer in frame order and
// releases the frame buffer before returning.
func observeFrame(
	ctx context.Context,
	frame SampledFrame,
	shots *ShotCutDetector,
	motion *MotionAnalyzer,
	text *TextPresenceSampler,
	detections *DetectionSampler,
) error {
	defer frame.Image.Close()

	if err := shots.Observe(frame); err != nil {
		return err
	}
	if err := motion.Observe(frame); err != nil {
		return err
	}
	if err := text.Observe(ctx, frame); err != nil {
		return err
	}
	return detections.Observe(ctx, frame)
}
