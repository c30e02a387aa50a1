package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers/dtos"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/application"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/middleware"
)

// UsersController exposes account registration and role management.
type UsersController struct {
	basePath string
	service  *services.UserService
}

func NewUsersController(service *services.UserService) application.Controller {
	return &UsersController{
		basePath: "/api/users",
		service:  service,
	}
}

func (c *UsersController) Key() string {
	return c.basePath
}

func (c *UsersController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	// Registration is the only anonymous endpoint: new users have no
	// identity to present yet.
	router.HandleFunc("", c.register).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(middleware.RequireAuthenticated())
	authed.HandleFunc("", c.list).Methods(http.MethodGet)
	authed.HandleFunc("/me", c.me).Methods(http.MethodGet)
	authed.HandleFunc("/{id}/role", c.changeRole).Methods(http.MethodPatch)
}

func (c *UsersController) register(w http.ResponseWriter, r *http.Request) {
	var dto dtos.RegisterUserDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}
	created, err := c.service.Register(r.Context(), dto.Email)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewUserResponse(created))
}

func (c *UsersController) list(w http.ResponseWriter, r *http.Request) {
	if err := composables.CanReview(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	users, err := c.service.GetAll(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	data := make([]dtos.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, dtos.NewUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, dtos.UserListResponse{Data: data, Total: len(data)})
}

func (c *UsersController) me(w http.ResponseWriter, r *http.Request) {
	u, err := composables.UseUser(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewUserResponse(u))
}

func (c *UsersController) changeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.ChangeRoleDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}
	role, err := user.NewRole(dto.Role)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ROLE", err.Error())
		return
	}
	updated, err := c.service.ChangeRole(r.Context(), id, role)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewUserResponse(updated))
}
