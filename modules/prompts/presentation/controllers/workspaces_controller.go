package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers/dtos"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/application"
	"github.com/promptdesk/promptdesk/pkg/middleware"
)

// WorkspacesController exposes workspaces and their prompt resource slots.
// Writes to resource slots pass through the authorization gate: regular
// users' writes to the shared workspace become change requests.
type WorkspacesController struct {
	basePath   string
	workspaces *services.WorkspaceService
	prompts    *services.PromptService
}

func NewWorkspacesController(workspaces *services.WorkspaceService, prompts *services.PromptService) application.Controller {
	return &WorkspacesController{
		basePath:   "/api/workspaces",
		workspaces: workspaces,
		prompts:    prompts,
	}
}

func (c *WorkspacesController) Key() string {
	return c.basePath
}

func (c *WorkspacesController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireAuthenticated())

	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("", c.create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/resources/{kind}", c.getResource).Methods(http.MethodGet)
	router.HandleFunc("/{id}/resources/{kind}", c.writeResource).Methods(http.MethodPut)
}

func (c *WorkspacesController) list(w http.ResponseWriter, r *http.Request) {
	workspaces, err := c.workspaces.GetAll(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	data := make([]dtos.WorkspaceResponse, 0, len(workspaces))
	for i := range workspaces {
		data = append(data, dtos.NewWorkspaceResponse(&workspaces[i]))
	}
	writeJSON(w, http.StatusOK, dtos.WorkspaceListResponse{Data: data, Total: len(data)})
}

func (c *WorkspacesController) create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateWorkspaceDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}
	created, err := c.workspaces.CreatePersonal(r.Context(), dto.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewWorkspaceResponse(created))
}

func (c *WorkspacesController) get(w http.ResponseWriter, r *http.Request) {
	ws, err := c.workspaces.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewWorkspaceResponse(ws))
}

func (c *WorkspacesController) delete(w http.ResponseWriter, r *http.Request) {
	if err := c.workspaces.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *WorkspacesController) getResource(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	res, err := c.prompts.Get(r.Context(), mux.Vars(r)["id"], kind)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewResourceResponse(res))
}

func (c *WorkspacesController) writeResource(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	var dto dtos.WriteResourceDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if fields, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", fields)
		return
	}

	result, err := c.prompts.Write(r.Context(), mux.Vars(r)["id"], kind, dto.Content, dto.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == services.WriteQueued {
		// The write was not applied; it now awaits review.
		status = http.StatusAccepted
	}
	writeJSON(w, status, dtos.NewWriteResultResponse(result))
}

func pathKind(w http.ResponseWriter, r *http.Request) (promptresource.Kind, bool) {
	kind, err := promptresource.NewKind(mux.Vars(r)["kind"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_KIND", err.Error())
		return "", false
	}
	return kind, true
}
