package services

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/pkg/composables"
)

// WriteOutcome tags how a write request was handled by the authorization
// gate.
type WriteOutcome string

const (
	// WriteApplied means the content was written to the resource directly.
	WriteApplied WriteOutcome = "APPLIED"
	// WriteQueued means the write was converted into a pending change
	// request awaiting review.
	WriteQueued WriteOutcome = "QUEUED"
)

// WriteResult is the gate's answer to a write: either the updated resource
// or the queued change request, never both.
type WriteResult struct {
	Outcome       WriteOutcome
	Resource      *promptresource.Resource
	ChangeRequest *changerequest.ChangeRequest
}

// PromptService reads and writes workspace prompt resources, routing shared
// workspace writes by regular users through the change request workflow.
type PromptService struct {
	repo       promptresource.Repository
	workspaces workspace.Repository
	requests   *ChangeRequestService
	tx         Transactor
}

func NewPromptService(
	repo promptresource.Repository,
	workspaces workspace.Repository,
	requests *ChangeRequestService,
	tx Transactor,
) *PromptService {
	return &PromptService{
		repo:       repo,
		workspaces: workspaces,
		requests:   requests,
		tx:         tx,
	}
}

// Get returns the resource content for the workspace and kind, falling back
// to the kind's empty default when the slot was never written.
func (s *PromptService) Get(ctx context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, err
	}
	res, err := s.repo.Get(ctx, workspaceID, kind)
	if err != nil {
		if errors.Is(err, promptresource.ErrNotFound) {
			return &promptresource.Resource{
				WorkspaceID: workspaceID,
				Kind:        kind,
				Content:     kind.EmptyContent(),
			}, nil
		}
		return nil, err
	}
	return res, nil
}

// Write applies the authorization gate. Personal workspace writes go through
// directly for the owner. Shared workspace writes go through directly for
// privileged users and become pending change requests for regular users.
func (s *PromptService) Write(ctx context.Context, workspaceID string, kind promptresource.Kind, content json.RawMessage, description *string) (*WriteResult, error) {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if !ws.IsShared() {
		if ws.OwnerID == nil || *ws.OwnerID != caller.ID {
			return nil, ErrNotWorkspaceOwner
		}
		return s.applyDirect(ctx, workspaceID, kind, content)
	}

	if caller.CanReview() {
		return s.applyDirect(ctx, workspaceID, kind, content)
	}

	cr, err := s.requests.Create(ctx, CreateChangeRequestParams{
		Kind:        kind,
		Proposed:    content,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	gateWrites.WithLabelValues("queued").Inc()
	return &WriteResult{Outcome: WriteQueued, ChangeRequest: cr}, nil
}

func (s *PromptService) applyDirect(ctx context.Context, workspaceID string, kind promptresource.Kind, content json.RawMessage) (*WriteResult, error) {
	normalized, err := normalizeJSON(content)
	if err != nil {
		return nil, errors.Wrap(err, "invalid content")
	}

	// Direct writes share the approval workflow's slot lock: an approve
	// comparing its baseline must not interleave with a write to the same
	// slot landing between the compare and the resource write.
	unlock := s.requests.slots.lock(slotKey(workspaceID, kind))
	defer unlock()

	var res *promptresource.Resource
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err = s.repo.Save(ctx, workspaceID, kind, normalized)
		return err
	})
	if err != nil {
		return nil, err
	}
	gateWrites.WithLabelValues("applied").Inc()
	return &WriteResult{Outcome: WriteApplied, Resource: res}, nil
}
