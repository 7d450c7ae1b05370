package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrLoopStopped = errors.New("event loop stopped")
	ErrLoopFull    = errors.New("event loop queue is full")
)

// Loop runs tasks one at a time, in the order they were posted. Every
// change to a session's state goes through its loop.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	log   *slog.Logger

	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewLoop(size int, log *slog.Logger) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Start launches the loop goroutine. It exits when ctx is canceled or Stop
// is called.
func (l *Loop) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			case task := <-l.tasks:
				l.run(task)
			}
		}
	}()
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event loop task panicked", "panic", r)
		}
	}()
	task()
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	default:
		return fmt.Errorf("%w (%d)", ErrLoopFull, cap(l.tasks))
	}
}

// Do queues fn and waits until it has run. It must not be called from a
// task already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Defer queues fn behind whatever is already pending. It satisfies
// nav.Scheduler.
func (l *Loop) Defer(fn func()) {
	if err := l.Post(fn); err != nil {
		l.log.Warn("dropped deferred task", "error", err)
	}
}

// Stop terminates the loop and waits for the running task to finish.
// Pending tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
	l.wg.Wait()
}
