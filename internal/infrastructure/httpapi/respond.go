package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chat-bridge/internal/domain/entity"
)

type exchangeResponse struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, exchangeResponse{Status: string(entity.StatusError), Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrEmptyQuery), errors.Is(err, entity.ErrAttachmentDecode):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, entity.ErrUploadTimeout), errors.Is(err, entity.ErrCompletionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, entity.ErrExtraction):
		return http.StatusBadGateway
	case errors.Is(err, entity.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// The client is gone; the code only shows up in access logs.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// messageFor keeps the busy answer exactly "busy" so clients can match it.
func messageFor(err error) string {
	if errors.Is(err, entity.ErrBusy) {
		return entity.ErrBusy.Error()
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
