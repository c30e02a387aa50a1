package workspace

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the workspace does not exist.
	ErrNotFound = errors.New("workspace not found")
	// ErrSharedProtected indicates an attempt to delete the shared workspace.
	ErrSharedProtected = errors.New("cannot delete the organization workspace")
)

type Repository interface {
	Create(ctx context.Context, w *Workspace) (*Workspace, error)
	GetByID(ctx context.Context, id string) (*Workspace, error)
	GetAll(ctx context.Context) ([]Workspace, error)
	GetForOwner(ctx context.Context, ownerID uuid.UUID) ([]Workspace, error)
	Delete(ctx context.Context, id string) error
}
