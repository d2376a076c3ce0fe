package output

import (
	"time"

	"chat-bridge/internal/domain/entity"
)

type MetricsPort interface {
	ObserveExchange(kind entity.ExchangeKind, outcome string, duration time.Duration)
	SetQueueDepth(n int)
	SetInFlight(n int)
}
