package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/infrastructure/persistence/memory"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers/dtos"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/eventbus"
	"github.com/promptdesk/promptdesk/pkg/middleware"
)

type testServer struct {
	handler   http.Handler
	users     *memory.UserRepository
	resources *memory.PromptResourceRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	publisher := eventbus.NewEventPublisher(log)
	tx := services.PassthroughTransactor{}

	users := memory.NewUserRepository()
	workspaces := memory.NewWorkspaceRepository()
	resources := memory.NewPromptResourceRepository()
	requests := memory.NewChangeRequestRepository()

	userService := services.NewUserService(users, tx, publisher)
	workspaceService := services.NewWorkspaceService(workspaces, resources, tx)
	requestService := services.NewChangeRequestService(requests, resources, tx, publisher)
	promptService := services.NewPromptService(resources, workspaces, requestService, tx)

	require.NoError(t, workspaceService.EnsureShared(context.Background()))

	router := mux.NewRouter()
	router.Use(
		middleware.RequestLogger(log, "X-Request-ID"),
		middleware.ProvideUser(users, "X-User-ID"),
	)
	for _, c := range []interface {
		Register(r *mux.Router)
	}{
		controllers.NewHealthController(nil),
		controllers.NewUsersController(userService),
		controllers.NewWorkspacesController(workspaceService, promptService),
		controllers.NewChangeRequestsController(requestService),
	} {
		c.Register(router)
	}

	return &testServer{handler: router, users: users, resources: resources}
}

// do issues a request against the in-process router, authenticating as
// userID when non-empty.
func (s *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email string) dtos.UserResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", "", map[string]string{"email": email})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dtos.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
