package extractor

import (
	"fmt"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// MotionAnalyzer accumulates the mean dense optical-flow magnitude between
// consecutive sampled frames. A single-frame video yields no pair and
// finalizes to 0.
type MotionAnalyzer struct {
	ops    port.FrameOps
	params port.FarnebackParams

	prevGray     port.Frame
	magnitudeSum float64
	samples      int
}

func NewMotionAnalyzer(ops port.FrameOps, params port.FarnebackParams) *MotionAnalyzer {
	return &MotionAnalyzer{ops: ops, params: params}
}

func (m *MotionAnalyzer) Observe(frame SampledFrame) error {
	gray, err := m.ops.Grayscale(frame.Image)
	if err != nil {
		return fmt.Errorf("grayscale: %w", err)
	}
	if m.prevGray != nil {
		flow, err := m.ops.DenseOpticalFlow(m.prevGray, gray, m.params)
		if err != nil {
			gray.Close()
			return fmt.Errorf("dense optical flow: %w", err)
		}
		m.magnitudeSum += flow.MeanMagnitude()
		m.samples++
		flow.Close()
		m.prevGray.Close()
	}
	m.prevGray = gray
	return nil
}

// Finalize returns the average motion magnitude over all observed pairs.
func (m *MotionAnalyzer) Finalize() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.magnitudeSum / float64(m.samples)
}

// Close releases the retained previous grayscale frame. Idempotent.
func (m *MotionAnalyzer) Close() {
	if m.prevGray != nil {
		m.prevGray.Close()
		m.prevGray = nil
	}
}
