package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// LimiterMetrics tracks run admission.
type LimiterMetrics struct {
	Active   int64 `json:"active"`
	Admitted int64 `json:"admitted"`
	Rejected int64 `json:"rejected"`
}

// ErrLimiterClosed is returned when a run is admitted after Close.
var ErrLimiterClosed = errors.New("run limiter is closed")

// RunLimiter bounds the number of workflow runs executing at once. Runs keep
// executing on the caller's goroutine; the limiter only admits them.
type RunLimiter struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics LimiterMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewRunLimiter creates a limiter admitting at most size concurrent runs.
func NewRunLimiter(size int) *RunLimiter {
	if size <= 0 {
		size = 1
	}
	return &RunLimiter{
		sem:  make(chan struct{}, size),
		done: make(chan struct{}),
	}
}

// Acquire blocks until a slot is free, ctx is done or the limiter closes.
// The returned release func must be called exactly once.
func (l *RunLimiter) Acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		atomic.AddInt64(&l.metrics.Rejected, 1)
		return nil, ErrLimiterClosed
	}
	l.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		atomic.AddInt64(&l.metrics.Rejected, 1)
		return nil, ctx.Err()
	case <-l.done:
		atomic.AddInt64(&l.metrics.Rejected, 1)
		return nil, ErrLimiterClosed
	}

	// wg.Add must happen under the lock so Close cannot miss this run.
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.sem
		atomic.AddInt64(&l.metrics.Rejected, 1)
		return nil, ErrLimiterClosed
	}
	l.wg.Add(1)
	atomic.AddInt64(&l.metrics.Active, 1)
	atomic.AddInt64(&l.metrics.Admitted, 1)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			atomic.AddInt64(&l.metrics.Active, -1)
			<-l.sem
			l.wg.Done()
		})
	}, nil
}

// Close stops admitting runs and waits for admitted ones to release.
func (l *RunLimiter) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()

	l.wg.Wait()
}

// Metrics returns a snapshot of the admission counters.
func (l *RunLimiter) Metrics() LimiterMetrics {
	return LimiterMetrics{
		Active:   atomic.LoadInt64(&l.metrics.Active),
		Admitted: atomic.LoadInt64(&l.metrics.Admitted),
		Rejected: atomic.LoadInt64(&l.metrics.Rejected),
	}
}
