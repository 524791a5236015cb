// Command extract runs the feature pipeline on a local video file and
// prints the JSON result. Environment variables provide the baseline
// configuration; flags override it per invocation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/visionsense/video-features-service/internal/extractor"
	"github.com/visionsense/video-features-service/internal/infra/config"
	"github.com/visionsense/video-features-service/internal/infra/vision"
	"github.com/visionsense/video-features-service/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var (
		video            = fs.String("video", "", "path to the input video (required)")
		output           = fs.String("output", "", "optional path to also write the JSON result")
		frameStride      = fs.Int("frame-stride", 0, "sample every Nth decoded frame")
		resizeWidth      = fs.Int("resize-width", 0, "downscale sampled frames to this width")
		shotThreshold    = fs.Float64("shot-threshold", -1, "histogram distance above which a hard cut is counted")
		textSampleStride = fs.Int("text-sample-stride", 0, "run OCR on every Nth sampled frame")
		textMinChars     = fs.Int("text-min-chars", -1, "minimum recognized characters for a positive text sample")
		yoloFrameStride  = fs.Int("yolo-frame-stride", 0, "run detection on every Nth sampled frame")
		yoloModel        = fs.String("yolo-model", "", "path to the detection model weights")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if *video == "" {
		fmt.Fprintln(os.Stderr, "extract: --video is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	dieOnErr(err)

	if *frameStride > 0 {
		cfg.FrameStride = *frameStride
	}
	if *resizeWidth > 0 {
		cfg.ResizeWidth = *resizeWidth
	}
	if *shotThreshold >= 0 {
		cfg.ShotThreshold = *shotThreshold
	}
	if *textSampleStride > 0 {
		cfg.TextSampleStride = *textSampleStride
	}
	if *textMinChars >= 0 {
		cfg.TextMinChars = *textMinChars
	}
	if *yoloFrameStride > 0 {
		cfg.YOLOFrameStride = *yoloFrameStride
	}
	if *yoloModel != "" {
		cfg.YOLOModelPath = *yoloModel
	}

	log, err := logger.New(cfg.LogLevel)
	dieOnErr(err)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := vision.NewObjectDetector(vision.DetectorConfig{
		ModelPath:      cfg.YOLOModelPath,
		ConfigPath:     cfg.YOLOConfigPath,
		ClassNamesPath: cfg.YOLOClassNames,
		Confidence:     cfg.YOLOConfidence,
	})
	dieOnErr(err)
	defer detector.Close()

	pipeline := extractor.NewPipeline(
		vision.NewDecoder(),
		vision.NewFrameOps(),
		vision.NewTextRecognizer(cfg.OCRLanguage),
		detector,
		cfg.ExtractorConfig(),
		log,
	)

	result, err := pipeline.Extract(ctx, *video)
	dieOnErr(err)

	data, err := json.MarshalIndent(result, "", "  ")
	dieOnErr(err)
	fmt.Println(string(data))

	if *output != "" {
		dieOnErr(os.WriteFile(*output, data, 0o644))
	}
}

func dieOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}
