// Package sequence holds the in-process nosso número allocator used when no
// operation management API is configured.
package sequence

import (
	"context"
	"sync"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

// Memory allocates increasing sequences per beneficiary account. Counters
// live only as long as the process, so it suits development and tests.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
	start    int64
}

// NewMemory creates an allocator whose first value for every account is start.
// A start below 1 is treated as 1.
func NewMemory(start int64) *Memory {
	if start < 1 {
		start = 1
	}
	return &Memory{counters: make(map[string]int64), start: start}
}

// Next returns the next sequence for acc.
func (m *Memory) Next(ctx context.Context, acc domain.BankAccountRef) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := acc.Key()
	n, ok := m.counters[key]
	if !ok {
		n = m.start - 1
	}
	n++
	m.counters[key] = n
	return n, nil
}
