package vision

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// TextRecognizer runs Tesseract OCR over an adaptively thresholded grayscale
// rendering of the frame.
type TextRecognizer struct {
	language string
}

func NewTextRecognizer(language string) *TextRecognizer {
	if language == "" {
		language = "eng"
	}
	return &TextRecognizer{language: language}
}

func (r *TextRecognizer) RecognizeText(ctx context.Context, f port.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mat, err := matOf(f)
	if err != nil {
		return "", err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(blurred, &binary, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, 11, 2)

	encoded, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return "", fmt.Errorf("encode frame for ocr: %w", err)
	}
	defer encoded.Close()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(encoded.GetBytes()); err != nil {
		return "", fmt.Errorf("set ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
