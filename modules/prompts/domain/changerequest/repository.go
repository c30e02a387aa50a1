package changerequest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
)

// ErrNotFound indicates that a record does not exist.
var ErrNotFound = errors.New("change request not found")

// FindParams defines filters for listing requests. A nil Status means all
// statuses; results are ordered by submission time, most recent first.
type FindParams struct {
	Status      *Status
	SubmittedBy *uuid.UUID
	Kind        *promptresource.Kind
	Limit       int
	Offset      int
}

// UpdateParams describes the mutable review and revision fields. Nil pointers
// leave the column untouched; ClearReview resets all review fields to NULL.
type UpdateParams struct {
	Status         *Status
	Baseline       []byte
	Proposed       []byte
	Description    *string
	ReviewedBy     *uuid.UUID
	ReviewedAt     *time.Time
	ReviewFeedback *string
	ClearReview    bool
}

type Repository interface {
	Create(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error)
	List(ctx context.Context, params FindParams) ([]ChangeRequest, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountPending(ctx context.Context) (int64, error)
	HasPending(ctx context.Context, submitter uuid.UUID, kind promptresource.Kind) (bool, error)
}
