package dtos

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/pkg/constants"
)

// CreateChangeRequestDTO captures a new submission against the shared
// workspace.
type CreateChangeRequestDTO struct {
	Kind        string          `json:"kind" validate:"required,oneof=DEFINITIONS EXAMPLES INSTRUCTIONS"`
	Proposed    json.RawMessage `json:"proposed" validate:"required"`
	Description *string         `json:"description,omitempty"`
}

// ReviewDTO carries the optional feedback attached to a verdict.
type ReviewDTO struct {
	Feedback *string `json:"feedback,omitempty"`
}

// ReviseDTO carries the replacement payload for a rejected request.
type ReviseDTO struct {
	Proposed    json.RawMessage `json:"proposed" validate:"required"`
	Description *string         `json:"description,omitempty"`
}

func (d *CreateChangeRequestDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

func (d *ReviseDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

func validateStruct(v any) (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(v)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}

// ChangeRequestResponse mirrors the change request aggregate for JSON
// responses.
type ChangeRequestResponse struct {
	ID             uuid.UUID       `json:"id"`
	WorkspaceID    string          `json:"workspace_id"`
	Kind           string          `json:"kind"`
	SubmittedBy    uuid.UUID       `json:"submitted_by"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	Status         string          `json:"status"`
	Baseline       json.RawMessage `json:"baseline"`
	Proposed       json.RawMessage `json:"proposed"`
	Description    *string         `json:"description,omitempty"`
	ReviewedBy     *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	ReviewFeedback *string         `json:"review_feedback,omitempty"`
}

func NewChangeRequestResponse(cr *changerequest.ChangeRequest) ChangeRequestResponse {
	return ChangeRequestResponse{
		ID:             cr.ID,
		WorkspaceID:    cr.WorkspaceID,
		Kind:           string(cr.Kind),
		SubmittedBy:    cr.SubmittedBy,
		SubmittedAt:    cr.SubmittedAt,
		Status:         string(cr.Status),
		Baseline:       cr.Baseline,
		Proposed:       cr.Proposed,
		Description:    cr.Description,
		ReviewedBy:     cr.ReviewedBy,
		ReviewedAt:     cr.ReviewedAt,
		ReviewFeedback: cr.ReviewFeedback,
	}
}

// ChangeRequestListResponse wraps a page of requests.
type ChangeRequestListResponse struct {
	Data  []ChangeRequestResponse `json:"data"`
	Total int                     `json:"total"`
}

// PendingCountResponse reports how many requests await review.
type PendingCountResponse struct {
	Count int64 `json:"count"`
}

// DiffResponse carries the JSON Patch between baseline and proposed.
type DiffResponse struct {
	RequestID uuid.UUID       `json:"request_id"`
	Patch     json.RawMessage `json:"patch"`
}
