package entity

// FeatureResult is the single structured payload produced by one extraction
// run. It is immutable once built; both the CLI and the HTTP API emit it
// verbatim as JSON.
type FeatureResult struct {
	VideoPath           string  `json:"video_path"`
	DurationSeconds     float64 `json:"duration_seconds"`
	FramesTotal         int     `json:"frames_total"`
	FramesProcessed     int     `json:"frames_processed"`
	HardCuts            int     `json:"hard_cuts"`
	AvgMotionMagnitude  float64 `json:"avg_motion_magnitude"`
	TextPresentRatio    float64 `json:"text_present_ratio"`
	PeopleDetections    int     `json:"people_detections"`
	ObjectDetections    int     `json:"object_detections"`
	PersonToObjectRatio float64 `json:"person_to_object_ratio"`
}
