package exchangetest

import (
	"sync"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

var _ output.MetricsPort = (*Metrics)(nil)

// Metrics records observations in memory.
type Metrics struct {
	mu        sync.Mutex
	outcomes  []string
	maxQueue  int
	maxFlight int
}

func (m *Metrics) ObserveExchange(kind entity.ExchangeKind, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, string(kind)+":"+outcome)
}

func (m *Metrics) SetQueueDepth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.maxQueue {
		m.maxQueue = n
	}
}

func (m *Metrics) SetInFlight(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.maxFlight {
		m.maxFlight = n
	}
}

func (m *Metrics) Outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}

func (m *Metrics) MaxQueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxQueue
}

func (m *Metrics) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}
