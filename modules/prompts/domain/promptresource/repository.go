package promptresource

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound indicates the (workspace, kind) slot does not exist.
var ErrNotFound = errors.New("prompt resource not found")

type Repository interface {
	Get(ctx context.Context, workspaceID string, kind Kind) (*Resource, error)
	// GetForUpdate reads the slot holding a row lock until the surrounding
	// transaction ends, so a read-compare-write over the slot cannot
	// interleave with a concurrent writer.
	GetForUpdate(ctx context.Context, workspaceID string, kind Kind) (*Resource, error)
	// Save overwrites the slot's content, creating the slot if missing.
	Save(ctx context.Context, workspaceID string, kind Kind, content json.RawMessage) (*Resource, error)
	// DeleteByWorkspace removes all slots of a workspace.
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
}
