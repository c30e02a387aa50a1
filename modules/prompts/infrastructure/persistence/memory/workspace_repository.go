package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
)

type WorkspaceRepository struct {
	mu         sync.RWMutex
	workspaces map[string]workspace.Workspace
}

func NewWorkspaceRepository() *WorkspaceRepository {
	return &WorkspaceRepository{workspaces: make(map[string]workspace.Workspace)}
}

func (r *WorkspaceRepository) Create(_ context.Context, w *workspace.Workspace) (*workspace.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	r.workspaces[w.ID] = *w
	return w, nil
}

func (r *WorkspaceRepository) GetByID(_ context.Context, id string) (*workspace.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workspaces[id]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	return &w, nil
}

func (r *WorkspaceRepository) GetAll(_ context.Context) ([]workspace.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]workspace.Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		results = append(results, w)
	}
	sortWorkspaces(results)
	return results, nil
}

func (r *WorkspaceRepository) GetForOwner(_ context.Context, ownerID uuid.UUID) ([]workspace.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var results []workspace.Workspace
	for _, w := range r.workspaces {
		if w.OwnerID != nil && *w.OwnerID == ownerID {
			results = append(results, w)
		}
	}
	sortWorkspaces(results)
	return results, nil
}

func (r *WorkspaceRepository) Delete(_ context.Context, id string) error {
	if id == workspace.SharedID {
		return workspace.ErrSharedProtected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[id]; !ok {
		return workspace.ErrNotFound
	}
	delete(r.workspaces, id)
	return nil
}

func sortWorkspaces(ws []workspace.Workspace) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].ID < ws[j].ID
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}
