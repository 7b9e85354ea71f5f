package event

import (
	"sync"

	"trail_bot/internal/domain"
)

// DepthUpdatePool provides sync.Pool for high-frequency depth event allocation.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireDepthUpdate()
//	ev.Bids = append(ev.Bids, ...)
//	// ... deliver and apply ...
//	ReleaseDepthUpdate(ev)  // Return to pool after processing
var depthUpdatePool = sync.Pool{
	New: func() interface{} {
		return &domain.DepthUpdate{}
	},
}

// AcquireDepthUpdate gets a DepthUpdate from the pool.
// The returned event has empty level slices and must be filled by the caller.
func AcquireDepthUpdate() *domain.DepthUpdate {
	return depthUpdatePool.Get().(*domain.DepthUpdate)
}

// ReleaseDepthUpdate returns a DepthUpdate to the pool.
// Level slices keep their capacity so refills avoid reallocation.
func ReleaseDepthUpdate(ev *domain.DepthUpdate) {
	if ev == nil {
		return
	}
	ev.Bids = ev.Bids[:0]
	ev.Asks = ev.Asks[:0]
	ev.LastUpdateID = 0

	depthUpdatePool.Put(ev)
}

// Warmup pre-allocates depth events to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	evs := make([]*domain.DepthUpdate, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		ev := AcquireDepthUpdate()
		ev.Bids = make([]domain.DepthLevel, 0, 32)
		ev.Asks = make([]domain.DepthLevel, 0, 32)
		evs = append(evs, ev)
	}
	for _, ev := range evs {
		ReleaseDepthUpdate(ev)
	}
}
