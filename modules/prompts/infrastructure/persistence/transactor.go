package persistence

import (
	"context"

	"github.com/promptdesk/promptdesk/pkg/composables"
)

// PgTransactor wraps each unit of work in a database transaction resolved
// from the request context.
type PgTransactor struct{}

func NewPgTransactor() *PgTransactor {
	return &PgTransactor{}
}

func (PgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return composables.InTx(ctx, fn)
}
