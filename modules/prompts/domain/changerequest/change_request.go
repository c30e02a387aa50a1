package changerequest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
)

// Status is the lifecycle state of a change request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ChangeRequest records a regular user's proposed mutation of a shared
// workspace resource. Baseline is the resource content snapshot captured at
// submission (or last revision) and is what approval compares against.
type ChangeRequest struct {
	ID             uuid.UUID           `json:"id"`
	WorkspaceID    string              `json:"workspace_id"`
	Kind           promptresource.Kind `json:"kind"`
	SubmittedBy    uuid.UUID           `json:"submitted_by"`
	SubmittedAt    time.Time           `json:"submitted_at"`
	Status         Status              `json:"status"`
	Baseline       json.RawMessage     `json:"baseline"`
	Proposed       json.RawMessage     `json:"proposed"`
	Description    *string             `json:"description,omitempty"`
	ReviewedBy     *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewed_at,omitempty"`
	ReviewFeedback *string             `json:"review_feedback,omitempty"`
}

// CreatedEvent is published whenever a change request is submitted.
type CreatedEvent struct {
	Result ChangeRequest
}

// ReviewedEvent is published whenever a request is approved or rejected.
type ReviewedEvent struct {
	PreviousStatus Status
	Result         ChangeRequest
}

// RevisedEvent is published whenever a rejected request is revised back to
// pending.
type RevisedEvent struct {
	Result ChangeRequest
}

// WithdrawnEvent is published whenever a pending request is withdrawn.
type WithdrawnEvent struct {
	Result ChangeRequest
}
