package port

import "context"

// Frame is an opaque handle to a decoded image buffer owned by a capability
// provider. Callers own frames they receive and must Close them.
type Frame interface {
	Close() error
}

// Histogram is an opaque normalized color histogram.
type Histogram interface {
	Close() error
}

// FlowField is an opaque dense optical-flow field.
type FlowField interface {
	// MeanMagnitude reduces the field to the average magnitude of all
	// per-pixel flow vectors.
	MeanMagnitude() float64
	Close() error
}

// HistogramParams selects bin counts and channel ranges for the 3-channel
// color histogram. Values are forwarded to the provider unchanged.
type HistogramParams struct {
	Bins   [3]int
	Ranges [6]float64
}

// FarnebackParams tunes the dense optical-flow computation. The pipeline
// does not interpret these values, it only forwards them.
type FarnebackParams struct {
	PyrScale   float64
	Levels     int
	WinSize    int
	Iterations int
	PolyN      int
	PolySigma  float64
	Flags      int
}

// FrameOps is the image-processing capability consumed by the analyzers.
type FrameOps interface {
	// ResizeToWidth returns an aspect-preserving copy no wider than width.
	// The caller owns the returned frame.
	ResizeToWidth(f Frame, width int) (Frame, error)
	ColorHistogram(f Frame, p HistogramParams) (Histogram, error)
	// BhattacharyyaDistance is in [0, 1]; 0 means identical distributions.
	BhattacharyyaDistance(a, b Histogram) float64
	Grayscale(f Frame) (Frame, error)
	DenseOpticalFlow(prev, curr Frame, p FarnebackParams) (FlowField, error)
}

// Detection is one detected object instance in a frame.
type Detection struct {
	Label      string
	Confidence float64
}

type TextRecognizer interface {
	// RecognizeText returns the recognized text, possibly empty.
	RecognizeText(ctx context.Context, f Frame) (string, error)
}

type ObjectDetector interface {
	DetectObjects(ctx context.Context, f Frame) ([]Detection, error)
}
