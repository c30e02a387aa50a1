package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wI2L/jsondiff"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers/dtos"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/application"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/middleware"
)

// ChangeRequestsController exposes the approval workflow as a REST API.
type ChangeRequestsController struct {
	basePath string
	service  *services.ChangeRequestService
}

func NewChangeRequestsController(service *services.ChangeRequestService) application.Controller {
	return &ChangeRequestsController{
		basePath: "/api/change-requests",
		service:  service,
	}
}

func (c *ChangeRequestsController) Key() string {
	return c.basePath
}

func (c *ChangeRequestsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireAuthenticated())

	router.HandleFunc("", c.create).Methods(http.MethodPost)
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/pending-count", c.pendingCount).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.withdraw).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/diff", c.diff).Methods(http.MethodGet)
	router.HandleFunc("/{id}/approve", c.approve).Methods(http.MethodPost)
	router.HandleFunc("/{id}/reject", c.reject).Methods(http.MethodPost)
	router.HandleFunc("/{id}/revise", c.revise).Methods(http.MethodPost)
}

func (c *ChangeRequestsController) create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateChangeRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}
	kind, err := promptresource.NewKind(dto.Kind)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_KIND", err.Error())
		return
	}

	cr, err := c.service.Create(r.Context(), services.CreateChangeRequestParams{
		Kind:        kind,
		Proposed:    dto.Proposed,
		Description: dto.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewChangeRequestResponse(cr))
}

func (c *ChangeRequestsController) list(w http.ResponseWriter, r *http.Request) {
	params, err := parseFindParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	requests, err := c.service.List(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	data := make([]dtos.ChangeRequestResponse, 0, len(requests))
	for i := range requests {
		data = append(data, dtos.NewChangeRequestResponse(&requests[i]))
	}
	writeJSON(w, http.StatusOK, dtos.ChangeRequestListResponse{Data: data, Total: len(data)})
}

func (c *ChangeRequestsController) pendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := c.service.CountPending(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.PendingCountResponse{Count: count})
}

func (c *ChangeRequestsController) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cr, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewChangeRequestResponse(cr))
}

// diff renders the pending change as an RFC 6902 patch from baseline to
// proposed content.
func (c *ChangeRequestsController) diff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cr, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	patch, err := jsondiff.CompareJSON(cr.Baseline, cr.Proposed)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to diff change request")
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute diff")
		return
	}
	encoded, err := json.Marshal(patch)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to encode diff")
		return
	}
	writeJSON(w, http.StatusOK, dtos.DiffResponse{RequestID: cr.ID, Patch: encoded})
}

func (c *ChangeRequestsController) approve(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, c.service.Approve)
}

func (c *ChangeRequestsController) reject(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, c.service.Reject)
}

func (c *ChangeRequestsController) review(
	w http.ResponseWriter,
	r *http.Request,
	decide func(ctx context.Context, id uuid.UUID, feedback *string) (*changerequest.ChangeRequest, error),
) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.ReviewDTO
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &dto); err != nil {
			writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
	}
	cr, err := decide(r.Context(), id, dto.Feedback)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewChangeRequestResponse(cr))
}

func (c *ChangeRequestsController) revise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.ReviseDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}
	cr, err := c.service.Revise(r.Context(), id, services.ReviseParams{
		Proposed:    dto.Proposed,
		Description: dto.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewChangeRequestResponse(cr))
}

func (c *ChangeRequestsController) withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.service.Withdraw(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "malformed request id")
		return uuid.Nil, false
	}
	return id, true
}

func parseFindParams(r *http.Request) (changerequest.FindParams, error) {
	var params changerequest.FindParams
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := changerequest.Status(raw)
		if !status.IsValid() {
			return params, errInvalidQueryValue("status", raw)
		}
		params.Status = &status
	}
	if raw := q.Get("kind"); raw != "" {
		kind, err := promptresource.NewKind(raw)
		if err != nil {
			return params, errInvalidQueryValue("kind", raw)
		}
		params.Kind = &kind
	}
	if raw := q.Get("submitted_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return params, errInvalidQueryValue("submitted_by", raw)
		}
		params.SubmittedBy = &id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return params, errInvalidQueryValue("limit", raw)
		}
		params.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return params, errInvalidQueryValue("offset", raw)
		}
		params.Offset = offset
	}
	return params, nil
}
