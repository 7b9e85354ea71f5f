package engine

import (
	"sync"

	"trail_bot/internal/domain"
)

// CommandQueue is an unbounded FIFO carrying commands from the user-data
// event handler to the trading loop. Commands must never be dropped: a lost
// stop-order placement would leave a position unprotected, so unlike the
// market-event queues this one grows instead of shedding load.
type CommandQueue struct {
	mu   sync.Mutex
	cmds []domain.Command
}

// NewCommandQueue creates an empty command queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Push appends a command. Safe for concurrent producers.
func (q *CommandQueue) Push(cmd domain.Command) {
	q.mu.Lock()
	q.cmds = append(q.cmds, cmd)
	q.mu.Unlock()
}

// Drain removes and returns all pending commands in FIFO order.
// Returns nil when the queue is empty.
func (q *CommandQueue) Drain() []domain.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cmds) == 0 {
		return nil
	}
	out := q.cmds
	q.cmds = nil
	return out
}

// Len returns the number of pending commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
