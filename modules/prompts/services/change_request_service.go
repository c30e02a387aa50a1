package services

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/eventbus"
)

// keyedMutex serializes operations per resource slot so that concurrent
// approvals of requests targeting the same (workspace, kind) pair cannot
// interleave between the baseline check and the write.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func slotKey(workspaceID string, kind promptresource.Kind) string {
	return workspaceID + "/" + string(kind)
}

// CreateChangeRequestParams carries the fields a submitter provides.
type CreateChangeRequestParams struct {
	Kind        promptresource.Kind
	Proposed    json.RawMessage
	Description *string
}

// ReviseParams carries the replacement payload for a rejected request.
type ReviseParams struct {
	Proposed    json.RawMessage
	Description *string
}

// ChangeRequestService implements the approval workflow over shared
// workspace resources.
type ChangeRequestService struct {
	requests  changerequest.Repository
	resources promptresource.Repository
	tx        Transactor
	publisher eventbus.EventBus
	slots     *keyedMutex
}

func NewChangeRequestService(
	requests changerequest.Repository,
	resources promptresource.Repository,
	tx Transactor,
	publisher eventbus.EventBus,
) *ChangeRequestService {
	return &ChangeRequestService{
		requests:  requests,
		resources: resources,
		tx:        tx,
		publisher: publisher,
		slots:     newKeyedMutex(),
	}
}

// Create submits a new pending request against the shared workspace. The
// current resource content is captured as the baseline the eventual approval
// will compare against.
func (s *ChangeRequestService) Create(ctx context.Context, params CreateChangeRequestParams) (*changerequest.ChangeRequest, error) {
	submitter, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	proposed, err := normalizeJSON(params.Proposed)
	if err != nil {
		return nil, errors.Wrap(err, "invalid proposed content")
	}

	unlock := s.slots.lock(slotKey(workspace.SharedID, params.Kind))
	defer unlock()

	var created *changerequest.ChangeRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.requests.HasPending(ctx, submitter.ID, params.Kind)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicatePendingRequest
		}

		baseline, err := s.currentContent(ctx, params.Kind)
		if err != nil {
			return err
		}

		created, err = s.requests.Create(ctx, &changerequest.ChangeRequest{
			WorkspaceID: workspace.SharedID,
			Kind:        params.Kind,
			SubmittedBy: submitter.ID,
			Status:      changerequest.StatusPending,
			Baseline:    baseline,
			Proposed:    proposed,
			Description: params.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	changeRequestTransitions.WithLabelValues("submitted").Inc()
	s.publisher.Publish(changerequest.CreatedEvent{Result: *created})
	return created, nil
}

func (s *ChangeRequestService) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *ChangeRequestService) List(ctx context.Context, params changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	return s.requests.List(ctx, params)
}

// Approve applies a pending request. The write only happens when the shared
// resource still matches the request's baseline; otherwise the request stays
// pending and ErrBaselineConflict is returned so the submitter can revise.
func (s *ChangeRequestService) Approve(ctx context.Context, id uuid.UUID, feedback *string) (*changerequest.ChangeRequest, error) {
	return s.review(ctx, id, changerequest.StatusApproved, feedback)
}

// Reject declines a pending request without touching the resource.
func (s *ChangeRequestService) Reject(ctx context.Context, id uuid.UUID, feedback *string) (*changerequest.ChangeRequest, error) {
	return s.review(ctx, id, changerequest.StatusRejected, feedback)
}

func (s *ChangeRequestService) review(ctx context.Context, id uuid.UUID, decision changerequest.Status, feedback *string) (*changerequest.ChangeRequest, error) {
	reviewer, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	if !reviewer.CanReview() {
		return nil, ErrReviewerNotPrivileged
	}

	cr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.slots.lock(slotKey(cr.WorkspaceID, cr.Kind))
	defer unlock()

	var reviewed *changerequest.ChangeRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Re-read under the slot lock: a concurrent review may have already
		// decided this request.
		cr, err = s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cr.Status != changerequest.StatusPending {
			return ErrInvalidStatusTransition
		}
		if cr.SubmittedBy == reviewer.ID {
			return ErrSelfReview
		}

		if decision == changerequest.StatusApproved {
			current, err := s.currentContentFor(ctx, cr.WorkspaceID, cr.Kind)
			if err != nil {
				return err
			}
			same, err := jsonEqual(current, cr.Baseline)
			if err != nil {
				return err
			}
			if !same {
				return ErrBaselineConflict
			}
			// Write the resource before flipping the status so no reader
			// ever observes an approved request without its effect.
			if _, err := s.resources.Save(ctx, cr.WorkspaceID, cr.Kind, cr.Proposed); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		status := decision
		if err := s.requests.Update(ctx, id, changerequest.UpdateParams{
			Status:         &status,
			ReviewedBy:     &reviewer.ID,
			ReviewedAt:     &now,
			ReviewFeedback: feedback,
		}); err != nil {
			return err
		}

		reviewed, err = s.requests.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch decision {
	case changerequest.StatusApproved:
		changeRequestTransitions.WithLabelValues("approved").Inc()
	case changerequest.StatusRejected:
		changeRequestTransitions.WithLabelValues("rejected").Inc()
	}
	s.publisher.Publish(changerequest.ReviewedEvent{
		PreviousStatus: changerequest.StatusPending,
		Result:         *reviewed,
	})
	return reviewed, nil
}

// Revise replaces a rejected request's payload and returns it to pending.
// The baseline is recaptured from the current resource content and the
// previous review verdict is cleared.
func (s *ChangeRequestService) Revise(ctx context.Context, id uuid.UUID, params ReviseParams) (*changerequest.ChangeRequest, error) {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	proposed, err := normalizeJSON(params.Proposed)
	if err != nil {
		return nil, errors.Wrap(err, "invalid proposed content")
	}

	cr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.slots.lock(slotKey(cr.WorkspaceID, cr.Kind))
	defer unlock()

	var revised *changerequest.ChangeRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cr, err = s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cr.SubmittedBy != caller.ID {
			return ErrNotSubmitter
		}
		if cr.Status != changerequest.StatusRejected {
			return ErrInvalidStatusTransition
		}

		baseline, err := s.currentContentFor(ctx, cr.WorkspaceID, cr.Kind)
		if err != nil {
			return err
		}

		status := changerequest.StatusPending
		if err := s.requests.Update(ctx, id, changerequest.UpdateParams{
			Status:      &status,
			Baseline:    baseline,
			Proposed:    proposed,
			Description: params.Description,
			ClearReview: true,
		}); err != nil {
			return err
		}

		revised, err = s.requests.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	changeRequestTransitions.WithLabelValues("revised").Inc()
	s.publisher.Publish(changerequest.RevisedEvent{Result: *revised})
	return revised, nil
}

// Withdraw deletes a pending request. Only the submitter may withdraw.
func (s *ChangeRequestService) Withdraw(ctx context.Context, id uuid.UUID) error {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return err
	}

	cr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.slots.lock(slotKey(cr.WorkspaceID, cr.Kind))
	defer unlock()

	var withdrawn changerequest.ChangeRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Re-read under the slot lock: the request may have been decided
		// or withdrawn while we waited.
		cr, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cr.SubmittedBy != caller.ID {
			return ErrNotSubmitter
		}
		if cr.Status != changerequest.StatusPending {
			return ErrInvalidStatusTransition
		}
		withdrawn = *cr
		return s.requests.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	changeRequestTransitions.WithLabelValues("withdrawn").Inc()
	s.publisher.Publish(changerequest.WithdrawnEvent{Result: withdrawn})
	return nil
}

func (s *ChangeRequestService) CountPending(ctx context.Context) (int64, error) {
	return s.requests.CountPending(ctx)
}

func (s *ChangeRequestService) HasPending(ctx context.Context, submitter uuid.UUID, kind promptresource.Kind) (bool, error) {
	return s.requests.HasPending(ctx, submitter, kind)
}

func (s *ChangeRequestService) currentContent(ctx context.Context, kind promptresource.Kind) (json.RawMessage, error) {
	return s.currentContentFor(ctx, workspace.SharedID, kind)
}

// currentContentFor returns the slot's content, falling back to the kind's
// empty default when the slot was never written. The read locks the row so
// the caller's compare-and-write stays atomic against concurrent writers.
func (s *ChangeRequestService) currentContentFor(ctx context.Context, workspaceID string, kind promptresource.Kind) (json.RawMessage, error) {
	res, err := s.resources.GetForUpdate(ctx, workspaceID, kind)
	if err != nil {
		if errors.Is(err, promptresource.ErrNotFound) {
			return kind.EmptyContent(), nil
		}
		return nil, err
	}
	return res.Content, nil
}

// normalizeJSON compacts raw JSON so stored payloads and baseline
// comparisons are insensitive to whitespace.
func normalizeJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty JSON payload")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jsonEqual reports whether two JSON documents are byte-identical after
// compaction.
func jsonEqual(a, b json.RawMessage) (bool, error) {
	na, err := normalizeJSON(a)
	if err != nil {
		return false, err
	}
	nb, err := normalizeJSON(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(na, nb), nil
}
