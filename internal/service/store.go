package service

import (
	"context"

	"github.com/betflow/betflow-api/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
// Implementations must hand a transaction-scoped Querier to fn; services never
// call Queries from inside a transaction callback.
type QueryStore interface {
	Queries() repository.Querier
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}
