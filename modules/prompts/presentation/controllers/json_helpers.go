package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/httpapi"
	"github.com/promptdesk/promptdesk/pkg/serrors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

// writeJSONError emits the shared error envelope middleware also uses, so
// every error response carries the same shape.
func writeJSONError(w http.ResponseWriter, status int, code, message string, meta ...map[string]string) {
	var fields map[string]string
	if len(meta) > 0 {
		fields = meta[0]
	}
	if err := httpapi.WriteError(w, status, code, message, fields); err != nil {
		panic(err)
	}
}

func errInvalidQueryValue(param, value string) error {
	return errors.Errorf("invalid %s value: %q", param, value)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondServiceError translates domain and service errors into HTTP
// responses. Unknown errors are logged and reported as 500s.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, changerequest.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, promptresource.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrDuplicatePendingRequest):
		writeJSONError(w, http.StatusConflict, "DUPLICATE_PENDING", err.Error())
	case errors.Is(err, services.ErrBaselineConflict):
		writeJSONError(w, http.StatusConflict, "BASELINE_CONFLICT", err.Error())
	case errors.Is(err, user.ErrDuplicateEmail):
		writeJSONError(w, http.StatusConflict, "DUPLICATE_EMAIL", err.Error())
	case errors.Is(err, services.ErrInvalidStatusTransition):
		writeJSONError(w, http.StatusBadRequest, "INVALID_STATE", err.Error())
	case errors.Is(err, services.ErrLastPrivilegedUser):
		writeJSONError(w, http.StatusBadRequest, "LAST_PRIVILEGED_USER", err.Error())
	case errors.Is(err, workspace.ErrSharedProtected):
		writeJSONError(w, http.StatusBadRequest, "SHARED_WORKSPACE_PROTECTED", err.Error())
	case errors.Is(err, services.ErrSelfReview):
		writeJSONError(w, http.StatusForbidden, "SELF_REVIEW", err.Error())
	case errors.Is(err, services.ErrNotSubmitter):
		writeJSONError(w, http.StatusForbidden, "NOT_SUBMITTER", err.Error())
	case errors.Is(err, services.ErrOwnRoleChange):
		writeJSONError(w, http.StatusForbidden, "OWN_ROLE_CHANGE", err.Error())
	case errors.Is(err, services.ErrReviewerNotPrivileged),
		errors.Is(err, services.ErrNotWorkspaceOwner),
		errors.Is(err, composables.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, composables.ErrNoUser):
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
	default:
		var base *serrors.BaseError
		if errors.As(err, &base) {
			writeJSONError(w, http.StatusBadRequest, base.Code, base.Message)
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Error("unhandled service error")
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
