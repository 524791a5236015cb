package vision

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

const detectorInputSize = 416

// ObjectDetector runs a YOLO-family network through gocv's DNN module and
// maps class ids to labels from a names file.
type ObjectDetector struct {
	mu         sync.Mutex
	net        gocv.Net
	outputs    []string
	classes    []string
	confidence float32
}

type DetectorConfig struct {
	ModelPath      string
	ConfigPath     string
	ClassNamesPath string
	Confidence     float64
}

func NewObjectDetector(cfg DetectorConfig) (*ObjectDetector, error) {
	classes, err := readClassNames(cfg.ClassNamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("load detection network from %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set network target: %w", err)
	}

	return &ObjectDetector{
		net:        net,
		outputs:    outputLayerNames(&net),
		classes:    classes,
		confidence: float32(cfg.Confidence),
	}, nil
}

func (d *ObjectDetector) DetectObjects(ctx context.Context, f port.Frame) ([]port.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(detectorInputSize, detectorInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	// gocv.Net forwards are not safe for concurrent use.
	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	layers := d.net.ForwardLayers(d.outputs)
	defer func() {
		for i := range layers {
			layers[i].Close()
		}
	}()

	var detections []port.Detection
	for _, layer := range layers {
		cols := layer.Cols()
		for row := 0; row < layer.Rows(); row++ {
			best, score := -1, float32(0)
			for col := 5; col < cols; col++ {
				if s := layer.GetFloatAt(row, col); s > score {
					best, score = col-5, s
				}
			}
			if best < 0 || score < d.confidence {
				continue
			}
			detections = append(detections, port.Detection{
				Label:      d.classLabel(best),
				Confidence: float64(score),
			})
		}
	}
	return detections, nil
}

func (d *ObjectDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func (d *ObjectDetector) classLabel(id int) string {
	if id < 0 || id >= len(d.classes) {
		return fmt.Sprintf("class_%d", id)
	}
	return d.classes[id]
}

func outputLayerNames(net *gocv.Net) []string {
	var names []string
	for _, index := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(index)
		names = append(names, layer.GetName())
		layer.Close()
	}
	return names
}

func readClassNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer file.Close()

	var classes []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		classes = append(classes, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	return classes, nil
}
