package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/httpapi"
)

// ProvideUser resolves the caller identity injected by the fronting proxy
// and stores the matching user on the request context. Requests without the
// header pass through unauthenticated; handlers that need an identity reject
// them via RequireAuthenticated.
func ProvideUser(users user.Repository, identityHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(identityHeader)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "INVALID_IDENTITY", "malformed identity header", nil)
				return
			}

			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNKNOWN_IDENTITY", "unknown user", nil)
					return
				}
				composables.UseLogger(r.Context()).WithError(err).Error("failed to resolve identity")
				_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(composables.WithUser(r.Context(), u)))
		})
	}
}

// RequireAuthenticated rejects requests that reached the handler without a
// resolved user.
func RequireAuthenticated() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := composables.UseUser(r.Context()); err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
