package infra

import (
	"testing"
)

func TestMetrics_RecordEvent(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(1000)
	m.RecordEvent(2000)
	m.RecordEvent(3000)

	snap := m.Snapshot()

	if snap.EventsProcessed != 3 {
		t.Errorf("Expected 3 events, got %d", snap.EventsProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Drops(t *testing.T) {
	m := &Metrics{}

	m.RecordDrop()
	m.RecordDrop()

	snap := m.Snapshot()
	if snap.EventsDropped != 2 {
		t.Errorf("Expected 2 drops, got %d", snap.EventsDropped)
	}
	if snap.EventsProcessed != 0 {
		t.Errorf("Drops should not count as processed, got %d", snap.EventsProcessed)
	}
}

func TestMetrics_Orders(t *testing.T) {
	m := &Metrics{}

	m.RecordOrderPlaced()
	m.RecordOrderPlaced()
	m.RecordOrderFilled()
	m.RecordOrderFailed()
	m.RecordCommand()

	snap := m.Snapshot()
	if snap.OrdersPlaced != 2 {
		t.Errorf("Expected 2 placed, got %d", snap.OrdersPlaced)
	}
	if snap.OrdersFilled != 1 {
		t.Errorf("Expected 1 filled, got %d", snap.OrdersFilled)
	}
	if snap.OrdersFailed != 1 {
		t.Errorf("Expected 1 failed, got %d", snap.OrdersFailed)
	}
	if snap.CommandsProcessed != 1 {
		t.Errorf("Expected 1 command, got %d", snap.CommandsProcessed)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(500)
	m.RecordDrop()
	m.RecordError()
	m.Reset()

	snap := m.Snapshot()
	if snap.EventsProcessed != 0 || snap.EventsDropped != 0 || snap.ErrorsTotal != 0 {
		t.Error("Reset should clear all counters")
	}
	if snap.AvgLatencyNs != 0 {
		t.Errorf("Reset should clear latency, got %d", snap.AvgLatencyNs)
	}
}
