package dtos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
)

type CreateWorkspaceDTO struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (d *CreateWorkspaceDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

type WorkspaceResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	Shared    bool       `json:"shared"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewWorkspaceResponse(w *workspace.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        w.ID,
		Name:      w.Name,
		OwnerID:   w.OwnerID,
		Shared:    w.IsShared(),
		CreatedAt: w.CreatedAt,
	}
}

type WorkspaceListResponse struct {
	Data  []WorkspaceResponse `json:"data"`
	Total int                 `json:"total"`
}

// WriteResourceDTO carries the replacement content for a resource slot.
type WriteResourceDTO struct {
	Content     json.RawMessage `json:"content" validate:"required"`
	Description *string         `json:"description,omitempty"`
}

func (d *WriteResourceDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

type ResourceResponse struct {
	WorkspaceID string          `json:"workspace_id"`
	Kind        string          `json:"kind"`
	Content     json.RawMessage `json:"content"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewResourceResponse(res *promptresource.Resource) ResourceResponse {
	return ResourceResponse{
		WorkspaceID: res.WorkspaceID,
		Kind:        string(res.Kind),
		Content:     res.Content,
		UpdatedAt:   res.UpdatedAt,
	}
}

// WriteResultResponse reports whether a write was applied or queued for
// review.
type WriteResultResponse struct {
	Outcome       string                 `json:"outcome"`
	Resource      *ResourceResponse      `json:"resource,omitempty"`
	ChangeRequest *ChangeRequestResponse `json:"change_request,omitempty"`
}

func NewWriteResultResponse(result *services.WriteResult) WriteResultResponse {
	out := WriteResultResponse{Outcome: string(result.Outcome)}
	if result.Resource != nil {
		res := NewResourceResponse(result.Resource)
		out.Resource = &res
	}
	if result.ChangeRequest != nil {
		cr := NewChangeRequestResponse(result.ChangeRequest)
		out.ChangeRequest = &cr
	}
	return out
}
