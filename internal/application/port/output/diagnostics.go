package output

import (
	"context"

	"chat-bridge/internal/domain/entity"
)

type DiagnosticsPort interface {
	Capture(ctx context.Context, exchangeID string, shot *entity.Screenshot, snap *entity.PageSnapshot) error
}
