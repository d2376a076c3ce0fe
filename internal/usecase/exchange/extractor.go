package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

type ResponseExtractor struct {
	session output.ChatSessionPort
}

func NewResponseExtractor(session output.ChatSessionPort) *ResponseExtractor {
	return &ResponseExtractor{session: session}
}

// Extract reads the response nearest the most recent query. A missing or
// blank response after completion was signalled is an entity.ErrExtraction.
func (e *ResponseExtractor) Extract(ctx context.Context) (string, error) {
	el, err := e.session.Locate(ctx, entity.TargetResponseContent)
	if errors.Is(err, entity.ErrElementNotFound) {
		return "", fmt.Errorf("%w: response content not found", entity.ErrExtraction)
	}
	if err != nil {
		return "", fmt.Errorf("locate response: %w", err)
	}

	text, err := e.session.ReadText(ctx, el)
	if errors.Is(err, entity.ErrElementNotFound) {
		return "", fmt.Errorf("%w: response content detached before read", entity.ErrExtraction)
	}
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: response content is empty", entity.ErrExtraction)
	}
	return text, nil
}
