package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
)

type ChangeRequestRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]changerequest.ChangeRequest
}

func NewChangeRequestRepository() *ChangeRequestRepository {
	return &ChangeRequestRepository{requests: make(map[uuid.UUID]changerequest.ChangeRequest)}
}

func (r *ChangeRequestRepository) Create(_ context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	if cr.SubmittedAt.IsZero() {
		cr.SubmittedAt = time.Now().UTC()
	}
	r.requests[cr.ID] = cloneChangeRequest(*cr)
	return cr, nil
}

func (r *ChangeRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cr, ok := r.requests[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	out := cloneChangeRequest(cr)
	return &out, nil
}

func (r *ChangeRequestRepository) List(_ context.Context, params changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []changerequest.ChangeRequest
	for _, cr := range r.requests {
		if params.Status != nil && cr.Status != *params.Status {
			continue
		}
		if params.SubmittedBy != nil && cr.SubmittedBy != *params.SubmittedBy {
			continue
		}
		if params.Kind != nil && cr.Kind != *params.Kind {
			continue
		}
		results = append(results, cloneChangeRequest(cr))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].SubmittedAt.After(results[j].SubmittedAt)
	})

	if params.Offset > 0 {
		if params.Offset >= len(results) {
			return nil, nil
		}
		results = results[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(results) {
		results = results[:params.Limit]
	}
	return results, nil
}

func (r *ChangeRequestRepository) Update(_ context.Context, id uuid.UUID, params changerequest.UpdateParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.requests[id]
	if !ok {
		return changerequest.ErrNotFound
	}

	if params.Status != nil {
		cr.Status = *params.Status
	}
	if params.Baseline != nil {
		cr.Baseline = bytes.Clone(params.Baseline)
	}
	if params.Proposed != nil {
		cr.Proposed = bytes.Clone(params.Proposed)
	}
	if params.Description != nil {
		desc := *params.Description
		cr.Description = &desc
	}
	if params.ClearReview {
		cr.ReviewedBy = nil
		cr.ReviewedAt = nil
		cr.ReviewFeedback = nil
	} else {
		if params.ReviewedBy != nil {
			id := *params.ReviewedBy
			cr.ReviewedBy = &id
		}
		if params.ReviewedAt != nil {
			at := *params.ReviewedAt
			cr.ReviewedAt = &at
		}
		if params.ReviewFeedback != nil {
			fb := *params.ReviewFeedback
			cr.ReviewFeedback = &fb
		}
	}

	r.requests[id] = cr
	return nil
}

func (r *ChangeRequestRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return changerequest.ErrNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *ChangeRequestRepository) CountPending(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, cr := range r.requests {
		if cr.Status == changerequest.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *ChangeRequestRepository) HasPending(_ context.Context, submitter uuid.UUID, kind promptresource.Kind) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cr := range r.requests {
		if cr.Status == changerequest.StatusPending && cr.SubmittedBy == submitter && cr.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func cloneChangeRequest(cr changerequest.ChangeRequest) changerequest.ChangeRequest {
	cr.Baseline = bytes.Clone(cr.Baseline)
	cr.Proposed = bytes.Clone(cr.Proposed)
	if cr.Description != nil {
		desc := *cr.Description
		cr.Description = &desc
	}
	if cr.ReviewedBy != nil {
		id := *cr.ReviewedBy
		cr.ReviewedBy = &id
	}
	if cr.ReviewedAt != nil {
		at := *cr.ReviewedAt
		cr.ReviewedAt = &at
	}
	if cr.ReviewFeedback != nil {
		fb := *cr.ReviewFeedback
		cr.ReviewFeedback = &fb
	}
	return cr
}
