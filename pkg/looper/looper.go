// Package looper runs callbacks one at a time on a single goroutine. Every
// call into the rendering facade and the selection state happens there,
// so they need no locks of their own.
package looper

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler accepts work for a serial execution context.
type Handler interface {
	// Post queues fn and reports whether it was accepted. A false return
	// means fn will never run.
	Post(fn func()) bool
}

// DefaultQueue is the task buffer used by New.
const DefaultQueue = 256

// Looper is a single-consumer task queue.
type Looper struct {
	tasks    chan func()
	quit     chan struct{}
	quitOnce sync.Once
	running  atomic.Bool
}

// New creates a looper with room for queue pending tasks.
func New(queue int) *Looper {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Looper{
		tasks: make(chan func(), queue),
		quit:  make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full and returns false once
// the looper has quit.
func (l *Looper) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// TryPost queues fn without blocking. It is for producers that must not
// stall, like the input pump, and drops the task when the queue is full.
func (l *Looper) TryPost(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// Run executes tasks until ctx is done or Quit is called. Only one Run
// may be active; a second call returns immediately.
func (l *Looper) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			l.Quit()
			return ctx.Err()
		case <-l.quit:
			return nil
		case fn := <-l.tasks:
			select {
			case <-l.quit:
				return nil
			default:
			}
			if err := ctx.Err(); err != nil {
				l.Quit()
				return err
			}
			fn()
		}
	}
}

// Quit stops the looper. Pending tasks are discarded and later posts
// fail. Safe to call more than once.
func (l *Looper) Quit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Done is closed once the looper quits.
func (l *Looper) Done() <-chan struct{} {
	return l.quit
}

// Drain runs every queued task on the calling goroutine and returns how
// many ran. Tests use it to step a looper that is not running.
func (l *Looper) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.tasks:
			fn()
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of queued tasks.
func (l *Looper) Pending() int {
	return len(l.tasks)
}
