package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultExecutorQueue is the default number of pending UI tasks.
const DefaultExecutorQueue = 64

var (
	// ErrExecutorClosed is returned when submitting to a closed executor.
	ErrExecutorClosed = errors.New("service: executor closed")

	// ErrExecutorBusy is returned when the task queue is full.
	ErrExecutorBusy = errors.New("service: executor queue full")
)

// Executor schedules work on a single-threaded execution context.
type Executor interface {
	// Submit schedules task and returns without waiting for it to run.
	Submit(task func()) error
}

// UIExecutor runs submitted tasks one at a time, in submission order, on a
// single dedicated goroutine. It stands in for a host UI thread: everything
// that touches the editor host runs here and nowhere else.
type UIExecutor struct {
	tasks  chan func()
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewUIExecutor starts an executor with a queue of the given size.
func NewUIExecutor(queue int, logger *slog.Logger) *UIExecutor {
	if queue <= 0 {
		queue = DefaultExecutorQueue
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &UIExecutor{
		tasks:  make(chan func(), queue),
		done:   make(chan struct{}),
		logger: logger,
	}
	go e.loop()
	return e
}

// Submit implements Executor.
func (e *UIExecutor) Submit(task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrExecutorClosed
	}
	select {
	case e.tasks <- task:
		return nil
	default:
		return ErrExecutorBusy
	}
}

// Close stops accepting tasks, runs the ones already queued and waits for
// the executor goroutine to exit. Close is idempotent.
func (e *UIExecutor) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()

	<-e.done
	return nil
}

func (e *UIExecutor) loop() {
	defer close(e.done)
	for task := range e.tasks {
		e.run(task)
	}
}

// run executes one task; a panicking task is logged and does not stop the loop.
func (e *UIExecutor) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ui task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}
