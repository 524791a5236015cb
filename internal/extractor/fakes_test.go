package extractor

import (
	"context"
	"fmt"
	"math"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
)

// fakeFrame stands in for a decoded image; shade is the single scalar the
// fake ops derive histograms and flow magnitudes from.
type fakeFrame struct {
	shade  float64
	closed bool
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

type fakeHistogram struct {
	shade  float64
	closed bool
}

func (h *fakeHistogram) Close() error {
	h.closed = true
	return nil
}

type fakeFlow struct {
	magnitude float64
}

func (f *fakeFlow) MeanMagnitude() float64 { return f.magnitude }
func (f *fakeFlow) Close() error           { return nil }

// fakeSession yields one frame per shade value, in decode order.
type fakeSession struct {
	shades []float64
	meta   port.VideoMeta

	pos    int
	opened []*fakeFrame
	closed bool
}

func (s *fakeSession) Meta() port.VideoMeta { return s.meta }

func (s *fakeSession) ReadFrame() (port.Frame, bool, error) {
	if s.pos >= len(s.shades) {
		return nil, false, nil
	}
	f := &fakeFrame{shade: s.shades[s.pos]}
	s.opened = append(s.opened, f)
	s.pos++
	return f, true, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDecoder hands out a fresh session per Open so an extraction can be
// repeated against identical input.
type fakeDecoder struct {
	sessions map[string]func() *fakeSession
	last     *fakeSession
}

func (d *fakeDecoder) Open(path string) (port.VideoSession, error) {
	newSession, ok := d.sessions[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, entity.ErrInvalidVideo)
	}
	d.last = newSession()
	return d.last, nil
}

func singleVideoDecoder(path string, shades []float64, meta port.VideoMeta) *fakeDecoder {
	return &fakeDecoder{sessions: map[string]func() *fakeSession{
		path: func() *fakeSession {
			return &fakeSession{shades: shades, meta: meta}
		},
	}}
}

// fakeOps treats two frames as identical scenes when their shades match:
// histogram distance is 0 for equal shades and 1 otherwise, and flow
// magnitude is the absolute shade difference.
type fakeOps struct {
	opened []*fakeFrame
}

func (o *fakeOps) derive(f port.Frame) *fakeFrame {
	out := &fakeFrame{shade: f.(*fakeFrame).shade}
	o.opened = append(o.opened, out)
	return out
}

func (o *fakeOps) ResizeToWidth(f port.Frame, width int) (port.Frame, error) {
	return o.derive(f), nil
}

func (o *fakeOps) ColorHistogram(f port.Frame, _ port.HistogramParams) (port.Histogram, error) {
	return &fakeHistogram{shade: f.(*fakeFrame).shade}, nil
}

func (o *fakeOps) BhattacharyyaDistance(a, b port.Histogram) float64 {
	if a.(*fakeHistogram).shade == b.(*fakeHistogram).shade {
		return 0
	}
	return 1
}

func (o *fakeOps) Grayscale(f port.Frame) (port.Frame, error) {
	return o.derive(f), nil
}

func (o *fakeOps) DenseOpticalFlow(prev, curr port.Frame, _ port.FarnebackParams) (port.FlowField, error) {
	return &fakeFlow{magnitude: math.Abs(curr.(*fakeFrame).shade - prev.(*fakeFrame).shade)}, nil
}

// fakeRecognizer replays its texts in order, repeating the last one.
type fakeRecognizer struct {
	texts []string
	err   error
	calls int
}

func (r *fakeRecognizer) RecognizeText(_ context.Context, _ port.Frame) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	if len(r.texts) == 0 {
		return "", nil
	}
	i := r.calls - 1
	if i >= len(r.texts) {
		i = len(r.texts) - 1
	}
	return r.texts[i], nil
}

// fakeDetector returns the same detections on every call.
type fakeDetector struct {
	detections []port.Detection
	err        error
	calls      int
}

func (d *fakeDetector) DetectObjects(_ context.Context, _ port.Frame) ([]port.Detection, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.detections, nil
}
