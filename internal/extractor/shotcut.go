package extractor

import (
	"fmt"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// ShotCutDetector flags hard cuts by comparing consecutive sampled frames'
// normalized color histograms. The first sampled frame can never register a
// cut since it has no predecessor.
type ShotCutDetector struct {
	ops       port.FrameOps
	params    port.HistogramParams
	threshold float64

	prev     port.Histogram
	hardCuts int
}

func NewShotCutDetector(ops port.FrameOps, params port.HistogramParams, threshold float64) *ShotCutDetector {
	return &ShotCutDetector{ops: ops, params: params, threshold: threshold}
}

func (d *ShotCutDetector) Observe(frame SampledFrame) error {
	hist, err := d.ops.ColorHistogram(frame.Image, d.params)
	if err != nil {
		return fmt.Errorf("color histogram: %w", err)
	}
	if d.prev != nil {
		if d.ops.BhattacharyyaDistance(d.prev, hist) > d.threshold {
			d.hardCuts++
		}
		d.prev.Close()
	}
	d.prev = hist
	return nil
}

// Finalize returns the accumulated hard-cut count.
func (d *ShotCutDetector) Finalize() int {
	return d.hardCuts
}

// Close releases the retained previous histogram. Idempotent.
func (d *ShotCutDetector) Close() {
	if d.prev != nil {
		d.prev.Close()
		d.prev = nil
	}
}
