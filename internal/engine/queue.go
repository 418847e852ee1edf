// Package engine runs the pose comparison pipeline: frames go through a
// single-worker detection queue, get smoothed per session, and come back
// scored against the selected reference pose.
package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Submit after Close has been called.
var ErrQueueClosed = errors.New("task queue closed")

// Queue runs submitted tasks one at a time on a single worker goroutine.
// The MediaPipe subprocess handles one frame at a time, so every detection
// in the process funnels through here. Tasks run in submission order.
type Queue struct {
	tasks chan func()
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewQueue creates a queue and starts its worker. depth bounds how many
// tasks may wait; non-positive values fall back to 16.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = 16
	}

	q := &Queue{
		tasks: make(chan func(), depth),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		select {
		case task := <-q.tasks:
			task()
		case <-q.stop:
			// Run whatever was already queued, then exit.
			for {
				select {
				case task := <-q.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues a task for the worker. It blocks while the queue is full
// and gives up when ctx is done or the queue has been closed.
func (q *Queue) Submit(ctx context.Context, task func()) error {
	select {
	case <-q.stop:
		return ErrQueueClosed
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		return ErrQueueClosed
	}
}

// Pending returns the number of tasks waiting for the worker.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Close stops accepting tasks, lets the worker finish the backlog, and
// waits for it to exit. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.stop) })
	<-q.done
}
