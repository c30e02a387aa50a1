package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
)

type resourceKey struct {
	workspaceID string
	kind        promptresource.Kind
}

type PromptResourceRepository struct {
	mu        sync.RWMutex
	resources map[resourceKey]promptresource.Resource
}

func NewPromptResourceRepository() *PromptResourceRepository {
	return &PromptResourceRepository{resources: make(map[resourceKey]promptresource.Resource)}
}

func (r *PromptResourceRepository) Get(_ context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[resourceKey{workspaceID, kind}]
	if !ok {
		return nil, promptresource.ErrNotFound
	}
	out := res
	out.Content = bytes.Clone(res.Content)
	return &out, nil
}

// GetForUpdate is a plain read here; callers serialize conflicting writers
// with the service-level slot lock instead of row locks.
func (r *PromptResourceRepository) GetForUpdate(ctx context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	return r.Get(ctx, workspaceID, kind)
}

func (r *PromptResourceRepository) Save(_ context.Context, workspaceID string, kind promptresource.Kind, content json.RawMessage) (*promptresource.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := promptresource.Resource{
		WorkspaceID: workspaceID,
		Kind:        kind,
		Content:     bytes.Clone(content),
		UpdatedAt:   time.Now().UTC(),
	}
	r.resources[resourceKey{workspaceID, kind}] = res
	out := res
	out.Content = bytes.Clone(res.Content)
	return &out, nil
}

func (r *PromptResourceRepository) DeleteByWorkspace(_ context.Context, workspaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.resources {
		if key.workspaceID == workspaceID {
			delete(r.resources, key)
		}
	}
	return nil
}
