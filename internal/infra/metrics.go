package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed   atomic.Uint64
	eventsDropped     atomic.Uint64
	ordersPlaced      atomic.Uint64
	ordersFilled      atomic.Uint64
	ordersFailed      atomic.Uint64
	commandsProcessed atomic.Uint64
	errorsTotal       atomic.Uint64

	// Latency tracking for the ingestion critical section
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records one applied feed event with its lock-held latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordDrop records an event discarded because its queue was full.
func (m *Metrics) RecordDrop() {
	m.eventsDropped.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordOrderPlaced records an accepted order submission.
func (m *Metrics) RecordOrderPlaced() {
	m.ordersPlaced.Add(1)
}

// RecordOrderFilled records a fill confirmation.
func (m *Metrics) RecordOrderFilled() {
	m.ordersFilled.Add(1)
}

// RecordOrderFailed records a rejected or failed order submission.
func (m *Metrics) RecordOrderFailed() {
	m.ordersFailed.Add(1)
}

// RecordCommand records one command drained by the trading loop.
func (m *Metrics) RecordCommand() {
	m.commandsProcessed.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed   uint64
	EventsDropped     uint64
	OrdersPlaced      uint64
	OrdersFilled      uint64
	OrdersFailed      uint64
	CommandsProcessed uint64
	ErrorsTotal       uint64
	AvgLatencyNs      int64
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:   m.eventsProcessed.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		OrdersPlaced:      m.ordersPlaced.Load(),
		OrdersFilled:      m.ordersFilled.Load(),
		OrdersFailed:      m.ordersFailed.Load(),
		CommandsProcessed: m.commandsProcessed.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.eventsDropped.Store(0)
	m.ordersPlaced.Store(0)
	m.ordersFilled.Store(0)
	m.ordersFailed.Store(0)
	m.commandsProcessed.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
}
