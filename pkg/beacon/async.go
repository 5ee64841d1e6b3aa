package beacon

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// Scheduler lets report delivery complete without blocking the reporting
// call. Absence is legal: the client then awaits delivery synchronously.
type Scheduler interface {
	Schedule(task func())
}

// AsyncOption configures an AsyncScheduler.
type AsyncOption func(*AsyncScheduler)

// WithBufferSize sets the task channel capacity. Default: 256.
func WithBufferSize(n int) AsyncOption {
	return func(a *AsyncScheduler) { a.bufSize = n }
}

// WithDropOnFull makes Schedule return immediately (dropping the report)
// when the buffer is full, instead of blocking.
func WithDropOnFull() AsyncOption {
	return func(a *AsyncScheduler) { a.dropOnFull = true }
}

// AsyncScheduler decouples report delivery from the reporting call via a
// buffered channel drained by a single background goroutine. Use it as
// the WithScheduler argument in environments that allow work to outlive
// the request that scheduled it.
type AsyncScheduler struct {
	ch         chan func()
	done       chan struct{}
	bufSize    int
	dropOnFull bool
	closeOnce  sync.Once
}

// NewAsyncScheduler starts the drain goroutine immediately.
func NewAsyncScheduler(opts ...AsyncOption) *AsyncScheduler {
	a := &AsyncScheduler{bufSize: defaultBufferSize}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan func(), a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Schedule queues one delivery. By default blocks when the buffer is full
// (backpressure); with WithDropOnFull the task is dropped instead.
func (a *AsyncScheduler) Schedule(task func()) {
	if a.dropOnFull {
		select {
		case a.ch <- task:
		default:
			slog.Warn("beacon: scheduler buffer full, dropping report")
		}
		return
	}
	a.ch <- task
}

// Close stops accepting tasks and waits for queued deliveries to finish,
// up to a timeout.
func (a *AsyncScheduler) Close() error {
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("beacon: scheduler drain timed out")
		}
	})
	return nil
}

func (a *AsyncScheduler) drain() {
	defer close(a.done)
	for task := range a.ch {
		task()
	}
}
