package extractor

import (
	"fmt"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// SampledFrame is one downscaled frame yielded by a FrameSource. It is owned
// by the current loop iteration; analyzers may derive buffers from it but
// must not retain the Image itself.
type SampledFrame struct {
	// Index is the frame's ordinal in the original decode order.
	Index int
	Image port.Frame
}

// FrameSource drives a single decode pass over an open video session,
// visiting decode indexes 0, S, 2S, … and resizing each visited frame to the
// target width before any analyzer reads it. The sequence is lazy, finite
// and not restartable.
type FrameSource struct {
	session port.VideoSession
	ops     port.FrameOps
	stride  int
	width   int

	nextIndex int
	yielded   int
}

func NewFrameSource(session port.VideoSession, ops port.FrameOps, stride, width int) *FrameSource {
	if stride < 1 {
		stride = 1
	}
	return &FrameSource{session: session, ops: ops, stride: stride, width: width}
}

// Next returns the next sampled frame. ok is false once the decoder signals
// end of stream. The caller owns the returned frame's Image.
func (s *FrameSource) Next() (SampledFrame, bool, error) {
	for {
		raw, ok, err := s.session.ReadFrame()
		if err != nil {
			return SampledFrame{}, false, fmt.Errorf("read frame %d: %w", s.nextIndex, err)
		}
		if !ok {
			return SampledFrame{}, false, nil
		}

		index := s.nextIndex
		s.nextIndex++
		if index%s.stride != 0 {
			raw.Close()
			continue
		}

		small, err := s.ops.ResizeToWidth(raw, s.width)
		raw.Close()
		if err != nil {
			return SampledFrame{}, false, fmt.Errorf("resize frame %d: %w", index, err)
		}

		s.yielded++
		return SampledFrame{Index: index, Image: small}, true, nil
	}
}

// Processed is the count of frames actually yielded so far.
func (s *FrameSource) Processed() int {
	return s.yielded
}
