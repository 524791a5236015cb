package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/visionsense/video-features-service/internal/domain/port"
)

// TextPresenceSampler runs text recognition at its own cadence over sampled
// frames and counts samples whose recognized text meets the minimum length.
type TextPresenceSampler struct {
	recognizer port.TextRecognizer
	stride     int
	minChars   int

	tick      int
	samples   int
	positives int
}

func NewTextPresenceSampler(recognizer port.TextRecognizer, stride, minChars int) *TextPresenceSampler {
	if stride < 1 {
		stride = 1
	}
	return &TextPresenceSampler{recognizer: recognizer, stride: stride, minChars: minChars}
}

func (s *TextPresenceSampler) Observe(ctx context.Context, frame SampledFrame) error {
	s.tick++
	if s.tick%s.stride != 0 {
		return nil
	}
	s.samples++
	text, err := s.recognizer.RecognizeText(ctx, frame.Image)
	if err != nil {
		return fmt.Errorf("recognize text: %w", err)
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) >= s.minChars {
		s.positives++
	}
	return nil
}

// Finalize returns the ratio of positive samples, 0 when no sample was taken.
func (s *TextPresenceSampler) Finalize() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.positives) / float64(s.samples)
}
