package core

import (
	"fmt"
	"sync"
)

// StepLimiter enforces a monotonically non-decreasing, bounded counter. It is
// used for loop iterations, state-graph steps and per-run model call budgets.
// A max of 0 means unlimited. Safe for concurrent use: a per-run model budget
// is shared by concurrently executing branches.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a limiter allowing at most max increments.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment advances the counter and returns an error once the bound is
// exceeded.
func (sl *StepLimiter) Increment() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count++
	if sl.max > 0 && sl.count > sl.max {
		return fmt.Errorf("exceeded step limit: %d", sl.max)
	}
	return nil
}

// Count returns the number of increments so far.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.count
}

// Remaining returns how many increments are left, or -1 when unlimited.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.max == 0 {
		return -1
	}
	return sl.max - sl.count
}
