package core

// limiter.go bounds how many bulk submits run against the guest backend at
// once. A submit waits up to maxWait for a slot and then fails with
// ErrTooManySubmits. WaitForDrain lets shutdown wait for in-flight submits.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManySubmits is returned when no submit slot frees up in time.
var ErrTooManySubmits = errors.New("too many concurrent submits, please try again later")

const (
	DefaultMaxConcurrentSubmits = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// SubmitLimiter is a counting semaphore for bulk submits.
type SubmitLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter allows at most maxConcurrent submits. Non-positive
// arguments fall back to the defaults.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmits
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &SubmitLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. Callers must Release.
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManySubmits
	}
}

// Release frees a slot taken by Acquire.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// ActiveCount returns the number of submits holding a slot.
func (l *SubmitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *SubmitLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no submit holds a slot or ctx is done.
func (l *SubmitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status reports the current slot usage.
func (l *SubmitLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
