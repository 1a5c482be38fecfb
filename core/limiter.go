package core

import (
	"fmt"
	"sync"
)

// Budget bounds the number of steps (routing turns, model iterations) a
// loop may take. A max of 0 means unlimited.
type Budget struct {
	name  string
	max   int
	count int
	mu    sync.Mutex
}

// NewBudget creates a budget allowing max steps.
func NewBudget(name string, max int) *Budget {
	return &Budget{name: name, max: max}
}

// Spend consumes one step and fails with ErrBudgetExhausted once the
// budget is exceeded.
func (b *Budget) Spend() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	if b.max > 0 && b.count > b.max {
		return fmt.Errorf("%s exceeded %d steps: %w", b.name, b.max, ErrBudgetExhausted)
	}

	return nil
}

// Count returns the steps spent so far.
func (b *Budget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Remaining returns the steps left, or -1 when unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		return -1
	}

	if b.count >= b.max {
		return 0
	}

	return b.max - b.count
}
