package extractor

import (
	"path/filepath"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
)

// newFeatureResult folds the session metadata and the final analyzer
// snapshots into the immutable result payload. Ratios with a zero
// denominator are defined as 0.
func newFeatureResult(
	videoPath string,
	meta port.VideoMeta,
	framesProcessed int,
	hardCuts int,
	avgMotion float64,
	textRatio float64,
	people, objects int,
) *entity.FeatureResult {
	if abs, err := filepath.Abs(videoPath); err == nil {
		videoPath = abs
	}

	personToObject := 0.0
	if objects > 0 {
		personToObject = float64(people) / float64(objects)
	}

	return &entity.FeatureResult{
		VideoPath:           videoPath,
		DurationSeconds:     meta.DurationSeconds,
		FramesTotal:         meta.FramesTotal,
		FramesProcessed:     framesProcessed,
		HardCuts:            hardCuts,
		AvgMotionMagnitude:  avgMotion,
		TextPresentRatio:    textRatio,
		PeopleDetections:    people,
		ObjectDetections:    objects,
		PersonToObjectRatio: personToObject,
	}
}
