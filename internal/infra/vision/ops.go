package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// FrameOps implements the image-processing capability on gocv.
type FrameOps struct{}

func NewFrameOps() *FrameOps {
	return &FrameOps{}
}

func (FrameOps) ResizeToWidth(f port.Frame, width int) (port.Frame, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}
	cols := mat.Cols()
	if width <= 0 || cols <= width {
		return &matFrame{mat: mat.Clone()}, nil
	}
	scale := float64(width) / float64(cols)
	dst := gocv.NewMat()
	gocv.Resize(mat, &dst, image.Pt(width, int(float64(mat.Rows())*scale)), 0, 0, gocv.InterpolationArea)
	return &matFrame{mat: dst}, nil
}

func (FrameOps) ColorHistogram(f port.Frame, p port.HistogramParams) (port.Histogram, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	hist := gocv.NewMat()
	gocv.CalcHist([]gocv.Mat{hsv}, []int{0, 1, 2}, mask, &hist, p.Bins[:], p.Ranges[:], false)
	gocv.Normalize(hist, &hist, 1, 0, gocv.NormL2)
	return &matHistogram{mat: hist}, nil
}

func (FrameOps) BhattacharyyaDistance(a, b port.Histogram) float64 {
	ha := a.(*matHistogram)
	hb := b.(*matHistogram)
	return float64(gocv.CompareHist(ha.mat, hb.mat, gocv.HistCmpBhattacharya))
}

func (FrameOps) Grayscale(f port.Frame) (port.Frame, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}
	gray := gocv.NewMat()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	return &matFrame{mat: gray}, nil
}

func (FrameOps) DenseOpticalFlow(prev, curr port.Frame, p port.FarnebackParams) (port.FlowField, error) {
	prevMat, err := matOf(prev)
	if err != nil {
		return nil, err
	}
	currMat, err := matOf(curr)
	if err != nil {
		return nil, err
	}
	flow := gocv.NewMat()
	gocv.CalcOpticalFlowFarneback(prevMat, currMat, &flow,
		p.PyrScale, p.Levels, p.WinSize, p.Iterations, p.PolyN, p.PolySigma, p.Flags)
	return &matFlowField{mat: flow}, nil
}

type matFlowField struct {
	mat gocv.Mat
}

func (f *matFlowField) MeanMagnitude() float64 {
	channels := gocv.Split(f.mat)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()
	if len(channels) < 2 {
		return 0
	}
	magnitude := gocv.NewMat()
	defer magnitude.Close()
	angle := gocv.NewMat()
	defer angle.Close()
	gocv.CartToPolar(channels[0], channels[1], &magnitude, &angle, false)
	return magnitude.Mean().Val1
}

func (f *matFlowField) Close() error {
	return f.mat.Close()
}
