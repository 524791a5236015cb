// Package api exposes the upload-and-analyze HTTP surface and maps the
// domain error taxonomy onto fixed status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/visionsense/video-features-service/internal/domain/entity"
)

// UploadExtractor is the use case consumed by the upload endpoint.
type UploadExtractor interface {
	Execute(ctx context.Context, body io.Reader, declaredSize int64, filename, contentType string) (*entity.FeatureResult, error)
}

type Handler struct {
	extractor UploadExtractor
	logger    *zap.Logger
}

func NewHandler(extractor UploadExtractor, logger *zap.Logger) *Handler {
	return &Handler{extractor: extractor, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "video-features-service",
	})
}

// Extract streams the multipart "file" part through the upload guard and
// the pipeline. The part is never buffered in memory; the guard enforces
// all size limits on the stream itself.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "expected multipart form upload"})
		return
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed multipart body"})
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		// The request Content-Length bounds the file part from above; the
		// guard treats it as the declared size and re-checks the stream.
		result, err := h.extractor.Execute(r.Context(), part, r.ContentLength, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing file field"})
}

// writeError maps the error taxonomy onto the fixed status codes. Internal
// detail never reaches the response body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	var detail string

	switch {
	case errors.Is(err, entity.ErrUploadTooLarge):
		status, detail = http.StatusRequestEntityTooLarge, entity.ErrUploadTooLarge.Error()
	case errors.Is(err, entity.ErrQuotaExceeded):
		status, detail = http.StatusTooManyRequests, entity.ErrQuotaExceeded.Error()
	case errors.Is(err, entity.ErrInsufficientSpace):
		status, detail = http.StatusInsufficientStorage, entity.ErrInsufficientSpace.Error()
	case errors.Is(err, entity.ErrEmptyUpload):
		status, detail = http.StatusBadRequest, entity.ErrEmptyUpload.Error()
	case errors.Is(err, entity.ErrUnsupportedMedia):
		status, detail = http.StatusBadRequest, entity.ErrUnsupportedMedia.Error()
	case errors.Is(err, entity.ErrInvalidVideo):
		status, detail = http.StatusBadRequest, "failed to read uploaded video file"
	default:
		status, detail = http.StatusInternalServerError, "video processing failed"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("extraction request failed", zap.Error(err))
	} else {
		h.logger.Info("extraction request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
