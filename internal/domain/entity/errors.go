package entity

import "errors"

// Error taxonomy for the extraction service. Admission-time errors are
// detected before any temp asset exists or any decode begins; everything
// else that fails inside an admitted pipeline surfaces as a plain wrapped
// error and maps to an internal failure at the API boundary.
var (
	// ErrInvalidVideo marks a source that cannot be opened or contains no
	// readable frames. Fatal for the request, no partial result.
	ErrInvalidVideo = errors.New("invalid or unreadable video")

	// ErrEmptyUpload marks a zero-byte upload body.
	ErrEmptyUpload = errors.New("empty upload")

	// ErrUnsupportedMedia marks an upload whose extension or content type is
	// not an accepted video format.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUploadTooLarge marks an upload that breaches the per-upload size
	// limit, either by declared Content-Length or mid-stream.
	ErrUploadTooLarge = errors.New("upload exceeds maximum size")

	// ErrQuotaExceeded marks an upload that would push the temp volume past
	// its byte quota.
	ErrQuotaExceeded = errors.New("temporary storage quota exceeded")

	// ErrInsufficientSpace marks an upload that would leave less than the
	// configured free-space floor on the processing volume.
	ErrInsufficientSpace = errors.New("insufficient free space on processing volume")
)
