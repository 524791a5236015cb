package extractor

import (
	"context"
	"fmt"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

const personLabel = "person"

// DetectionSampler runs object detection at its own cadence over sampled
// frames and tallies person vs non-person detections.
type DetectionSampler struct {
	detector port.ObjectDetector
	stride   int

	tick    int
	people  int
	objects int
}

func NewDetectionSampler(detector port.ObjectDetector, stride int) *DetectionSampler {
	if stride < 1 {
		stride = 1
	}
	return &DetectionSampler{detector: detector, stride: stride}
}

func (s *DetectionSampler) Observe(ctx context.Context, frame SampledFrame) error {
	s.tick++
	if s.tick%s.stride != 0 {
		return nil
	}
	detections, err := s.detector.DetectObjects(ctx, frame.Image)
	if err != nil {
		return fmt.Errorf("detect objects: %w", err)
	}
	for _, d := range detections {
		if d.Label == personLabel {
			s.people++
		} else {
			s.objects++
		}
	}
	return nil
}

// Finalize returns the accumulated person and non-person detection counts.
func (s *DetectionSampler) Finalize() (people, objects int) {
	return s.people, s.objects
}
