package services_test

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/infrastructure/persistence/memory"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/eventbus"
)

type fixture struct {
	users          *memory.UserRepository
	workspaces     *memory.WorkspaceRepository
	resources      promptresource.Repository
	requests       *memory.ChangeRequestRepository
	userService    *services.UserService
	workspaceSvc   *services.WorkspaceService
	promptService  *services.PromptService
	requestService *services.ChangeRequestService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithResources(t, memory.NewPromptResourceRepository())
}

// setupWithResources wires the fixture around a caller-supplied resource
// repository so tests can observe repository calls mid-operation.
func setupWithResources(t *testing.T, resources promptresource.Repository) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	publisher := eventbus.NewEventPublisher(log)
	tx := services.PassthroughTransactor{}

	f := &fixture{
		users:      memory.NewUserRepository(),
		workspaces: memory.NewWorkspaceRepository(),
		resources:  resources,
		requests:   memory.NewChangeRequestRepository(),
	}
	f.userService = services.NewUserService(f.users, tx, publisher)
	f.workspaceSvc = services.NewWorkspaceService(f.workspaces, f.resources, tx)
	f.requestService = services.NewChangeRequestService(f.requests, f.resources, tx, publisher)
	f.promptService = services.NewPromptService(f.resources, f.workspaces, f.requestService, tx)

	require.NoError(t, f.workspaceSvc.EnsureShared(context.Background()))
	return f
}

// registerUser creates an account through the service so role bootstrap
// rules apply, then returns a context authenticated as that user.
func (f *fixture) registerUser(t *testing.T, email string) (*user.User, context.Context) {
	t.Helper()
	u, err := f.userService.Register(context.Background(), email)
	require.NoError(t, err)
	return u, composables.WithUser(context.Background(), u)
}
