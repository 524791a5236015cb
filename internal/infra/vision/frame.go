// Package vision provides the OpenCV-backed capability adapters: video
// decoding, frame operations, OCR, and DNN object detection. All frames
// exchanged through the domain ports in this package are gocv Mats.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

type matFrame struct {
	mat gocv.Mat
}

func (f *matFrame) Close() error {
	return f.mat.Close()
}

type matHistogram struct {
	mat gocv.Mat
}

func (h *matHistogram) Close() error {
	return h.mat.Close()
}

// matOf unwraps a port.Frame produced by this package.
func matOf(f port.Frame) (gocv.Mat, error) {
	mf, ok := f.(*matFrame)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("frame %T is not gocv-backed", f)
	}
	return mf.mat, nil
}
