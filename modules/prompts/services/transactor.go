package services

import "context"

// Transactor runs fn atomically against the backing store. The Postgres
// implementation opens a transaction and threads it through the context; the
// in-memory implementation runs fn directly.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PassthroughTransactor executes fn without any transaction, for stores that
// apply each repository call atomically on their own.
type PassthroughTransactor struct{}

func (PassthroughTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
