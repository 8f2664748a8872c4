package session

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO with a single consumer. push never blocks, so
// it is safe to call from source callbacks.
type queue[T any] struct {
	m     sync.Mutex
	items []T
	ready chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{ready: make(chan struct{}, 1)}
}

func (q *queue[T]) push(v T) {
	q.m.Lock()
	q.items = append(q.items, v)
	q.m.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue[T]) pop() (T, bool) {
	q.m.Lock()
	defer q.m.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// run hands items to fn one at a time, in order, until ctx is cancelled.
// Items still queued at cancellation are dropped.
func (q *queue[T]) run(ctx context.Context, fn func(T)) {
	for {
		if ctx.Err() != nil {
			return
		}
		v, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.ready:
			}
			continue
		}
		fn(v)
	}
}
