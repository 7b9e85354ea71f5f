package engine

import (
	"context"
	"log/slog"

	"trail_bot/internal/domain"
	"trail_bot/internal/infra"
)

// Queue is a bounded single-consumer event queue. Producers never block:
// when the buffer is full the incoming event is dropped and counted, so a
// slow consumer degrades market-state freshness instead of stalling the
// websocket delivery goroutines.
type Queue[T any] struct {
	name string
	ch   chan T
}

// NewQueue creates a queue with the given capacity.
// The name appears in drop warnings and identifies the stream.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	return &Queue[T]{
		name: name,
		ch:   make(chan T, capacity),
	}
}

// TryPush enqueues an event without blocking. Returns false if the queue
// is full, in which case the event is dropped (drop-newest).
func (q *Queue[T]) TryPush(ev T) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		infra.GlobalMetrics.RecordDrop()
		slog.Warn("Queue full, dropping event",
			"queue", q.name,
			"capacity", cap(q.ch))
		return false
	}
}

// Push enqueues an event, returning domain.ErrQueueFull when the buffer
// is at capacity. Same drop semantics as TryPush with an error result.
func (q *Queue[T]) Push(ev T) error {
	if !q.TryPush(ev) {
		return domain.ErrQueueFull
	}
	return nil
}

// Consume drains the queue, invoking apply for each event until ctx is
// cancelled. It is intended to run in a dedicated goroutine; the queue
// supports exactly one consumer.
func (q *Queue[T]) Consume(ctx context.Context, apply func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.ch:
			apply(ev)
		}
	}
}

// Len returns the number of buffered events.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
