package entity

import (
	"context"
	"errors"
)

var (
	ErrBusy               = errors.New("busy")
	ErrEmptyQuery         = errors.New("query is required")
	ErrAttachmentDecode   = errors.New("attachment decode failed")
	ErrUploadTimeout      = errors.New("attachment upload timed out")
	ErrCompletionTimeout  = errors.New("response completion timed out")
	ErrExtraction         = errors.New("response extraction failed")
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrElementNotFound    = errors.New("element not found")
)

// ErrorCode returns a stable label for err, used for metrics and API error types.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrAttachmentDecode):
		return "attachment_decode"
	case errors.Is(err, ErrUploadTimeout):
		return "upload_timeout"
	case errors.Is(err, ErrCompletionTimeout):
		return "completion_timeout"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrSessionUnavailable):
		return "session_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
