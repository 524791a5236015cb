package entity

import "github.com/google/uuid"

type ExtractionStatus string

const (
	ExtractionStatusProcessing ExtractionStatus = "PROCESSING"
	ExtractionStatusCompleted  ExtractionStatus = "COMPLETED"
	ExtractionStatusFailed     ExtractionStatus = "FAILED"
)

// ExtractionRequestMessage is the inbound message from the video.extract queue.
type ExtractionRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// ExtractionStatusMessage is the outbound message published to the
// video.features queue. Result is nil unless Status is COMPLETED.
type ExtractionStatusMessage struct {
	JobID        uuid.UUID        `json:"job_id"`
	UserID       string           `json:"user_id"`
	Status       ExtractionStatus `json:"status"`
	VideoKey     string           `json:"video_key"`
	Result       *FeatureResult   `json:"result,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Attempt      int              `json:"attempt"`
	MaxAttempts  int              `json:"max_attempts"`
}
