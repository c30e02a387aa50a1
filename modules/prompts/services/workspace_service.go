package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/serrors"
)

// WorkspaceService manages workspaces and their resource slots.
type WorkspaceService struct {
	repo      workspace.Repository
	resources promptresource.Repository
	tx        Transactor
}

func NewWorkspaceService(repo workspace.Repository, resources promptresource.Repository, tx Transactor) *WorkspaceService {
	return &WorkspaceService{repo: repo, resources: resources, tx: tx}
}

// EnsureShared provisions the organization-wide workspace and its empty
// resource slots on first boot. Safe to call on every startup.
func (s *WorkspaceService) EnsureShared(ctx context.Context) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.repo.GetByID(ctx, workspace.SharedID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, workspace.ErrNotFound) {
			return err
		}
		if _, err := s.repo.Create(ctx, &workspace.Workspace{
			ID:   workspace.SharedID,
			Name: "Organization",
		}); err != nil {
			return err
		}
		return s.provisionSlots(ctx, workspace.SharedID)
	})
}

// CreatePersonal creates a workspace owned by the caller with empty resource
// slots.
func (s *WorkspaceService) CreatePersonal(ctx context.Context, name string) (*workspace.Workspace, error) {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, serrors.NewFieldRequiredError("name")
	}

	var created *workspace.Workspace
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err = s.repo.Create(ctx, &workspace.Workspace{
			ID:      newWorkspaceID(),
			Name:    name,
			OwnerID: &caller.ID,
		})
		if err != nil {
			return err
		}
		return s.provisionSlots(ctx, created.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *WorkspaceService) GetByID(ctx context.Context, id string) (*workspace.Workspace, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WorkspaceService) GetAll(ctx context.Context) ([]workspace.Workspace, error) {
	return s.repo.GetAll(ctx)
}

func (s *WorkspaceService) GetForOwner(ctx context.Context, ownerID uuid.UUID) ([]workspace.Workspace, error) {
	return s.repo.GetForOwner(ctx, ownerID)
}

// Delete removes a personal workspace and its resource slots. Only the owner
// or a privileged user may delete; the shared workspace is protected.
func (s *WorkspaceService) Delete(ctx context.Context, id string) error {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ws, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ws.IsShared() {
			return workspace.ErrSharedProtected
		}
		if !caller.CanReview() && (ws.OwnerID == nil || *ws.OwnerID != caller.ID) {
			return composables.ErrForbidden
		}
		if err := s.resources.DeleteByWorkspace(ctx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
}

func (s *WorkspaceService) provisionSlots(ctx context.Context, workspaceID string) error {
	for _, kind := range promptresource.Kinds() {
		if _, err := s.resources.Save(ctx, workspaceID, kind, kind.EmptyContent()); err != nil {
			return err
		}
	}
	return nil
}

func newWorkspaceID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return "ws-" + hex.EncodeToString(b[:])
}
