package dom

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned when work is handed to a loop that has stopped.
var ErrLoopClosed = errors.New("dom: loop closed")

// Loop runs tasks one at a time, in the order they were posted, on the
// goroutine that called Run. It is the only place document state may be
// touched.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// NewLoop returns an idle loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Post queues fn. It never blocks. It returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.closed:
		return false
	default:
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-done:
		return nil
	case <-l.closed:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn := l.next()
			if fn == nil {
				break
			}
			fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.closed:
			return nil
		case <-l.wake:
		}
	}
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.closed) })
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
