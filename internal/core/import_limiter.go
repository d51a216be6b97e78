package core

// import_limiter.go bounds how many CSV imports parse at the same time.
//
// Each import holds a slot while its file is read and parsed. When every slot
// is taken, callers wait up to maxWait and then fail with ErrTooManyImports.
// On shutdown, WaitForDrain blocks until in-flight imports finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when no import slot frees up in time.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

const (
	// DefaultMaxConcurrentImports is the slot count used when none is configured.
	DefaultMaxConcurrentImports = 4

	// DefaultImportWait is how long Acquire waits for a slot by default.
	DefaultImportWait = 10 * time.Second

	drainPollInterval = 50 * time.Millisecond
)

// ImportLimiter is a counting semaphore for import parses.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewImportLimiter allows maxConcurrent imports at once. Non-positive
// arguments fall back to the defaults.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultImportWait
	}
	return &ImportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to maxWait. It returns ctx.Err() if ctx
// ends first. Every successful Acquire must be paired with Release.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyImports
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *ImportLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *ImportLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// ActiveCount returns the number of imports holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no import holds a slot or ctx ends.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// ImportLimiterStatus reports limiter occupancy.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current occupancy, for health checks.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	return ImportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
