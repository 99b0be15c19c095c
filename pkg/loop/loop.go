// Package loop provides the cooperative task boundary of the UI goroutine.
// Work that originates elsewhere (store watchers, timers, I/O) is posted
// as a closure and runs later on the goroutine that drains the loop.
package loop

import (
	"context"
	"sync"
)

// Poster schedules fn to run on the UI goroutine.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

func (f PosterFunc) Post(fn func()) { f(fn) }

// Immediate runs posted work synchronously. It is only correct when the
// caller already is the UI goroutine, which is the case in tests.
type Immediate struct{}

func (Immediate) Post(fn func()) { fn() }

// Loop is a FIFO task queue. Post is safe from any goroutine; RunPending
// and Run must be called from the UI goroutine only.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

// New returns an empty Loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. Posting to a closed loop drops the task.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// RunPending runs the tasks queued at the time of the call and returns how
// many ran. Tasks posted by those tasks wait for the next call.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	batch := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Drain runs tasks until the queue is empty, including tasks posted while
// draining. It returns the total number run.
func (l *Loop) Drain() int {
	total := 0
	for {
		n := l.RunPending()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Run drains tasks as they arrive until ctx is cancelled or Close is
// called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close stops accepting tasks and wakes Run. Queued tasks are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}
