package vision

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/domain/port"
)

// Decoder opens local video files with gocv's VideoCapture.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (Decoder) Open(path string) (port.VideoSession, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, entity.ErrInvalidVideo)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, entity.ErrInvalidVideo)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%s: decoder refused source: %w", path, entity.ErrInvalidVideo)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	// Some containers report no frame count; 0 means unknown, never an error.
	total := int(capture.Get(gocv.VideoCaptureFrameCount))
	if total < 0 {
		total = 0
	}
	duration := 0.0
	if fps > 0 {
		duration = float64(total) / fps
	}

	return &session{
		capture: capture,
		meta: port.VideoMeta{
			FramesTotal:     total,
			FPS:             fps,
			DurationSeconds: duration,
		},
	}, nil
}

type session struct {
	capture *gocv.VideoCapture
	meta    port.VideoMeta
}

func (s *session) Meta() port.VideoMeta {
	return s.meta
}

func (s *session) ReadFrame() (port.Frame, bool, error) {
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, false, nil
	}
	return &matFrame{mat: mat}, true, nil
}

func (s *session) Close() error {
	return s.capture.Close()
}
