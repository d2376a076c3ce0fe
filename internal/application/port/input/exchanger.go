package input

import (
	"context"

	"chat-bridge/internal/domain/entity"
)

type Exchanger interface {
	// Submit runs one exchange against the chat session. The outcome is always
	// non-nil; err is set when the outcome status is entity.StatusError.
	Submit(ctx context.Context, req entity.QueryRequest) (*entity.ExchangeOutcome, error)
	Status() entity.BridgeStatus
}
