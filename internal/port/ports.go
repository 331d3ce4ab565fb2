// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/factoring-settlement-go/internal/domain"
)

// NossoNumeroAllocator hands out the next nosso número sequence for a
// beneficiary account. Values are positive and never reused per account.
type NossoNumeroAllocator interface {
	Next(ctx context.Context, acc domain.BankAccountRef) (int64, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
