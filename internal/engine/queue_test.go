package engine

import (
	"context"
	"testing"
	"time"
)

func TestQueue_TryPush(t *testing.T) {
	q := NewQueue[int]("test", 3)

	for i := 0; i < 3; i++ {
		if !q.TryPush(i) {
			t.Fatalf("Push %d should succeed", i)
		}
	}

	// Buffer full: the newest event is dropped, buffered events survive.
	if q.TryPush(99) {
		t.Error("Push into full queue should fail")
	}
	if q.Len() != 3 {
		t.Errorf("Expected 3 buffered events, got %d", q.Len())
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]("test", 10)

	for i := 0; i < 5; i++ {
		q.TryPush(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make([]int, 0, 5)
	done := make(chan struct{})
	go q.Consume(ctx, func(v int) {
		got = append(got, v)
		if len(got) == 5 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consumer did not drain queue in time")
	}

	for i, v := range got {
		if v != i {
			t.Errorf("Expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestQueue_ConsumeStopsOnCancel(t *testing.T) {
	q := NewQueue[int]("test", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Consume(ctx, func(int) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consumer did not stop on context cancel")
	}
}
