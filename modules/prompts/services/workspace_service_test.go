package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/pkg/composables"
)

func TestWorkspaceService_EnsureShared_Idempotent(t *testing.T) {
	t.Parallel()
	f := setup(t)

	// setup already provisioned the shared workspace once.
	require.NoError(t, f.workspaceSvc.EnsureShared(context.Background()))

	ws, err := f.workspaceSvc.GetByID(context.Background(), workspace.SharedID)
	require.NoError(t, err)
	require.True(t, ws.IsShared())
	require.Nil(t, ws.OwnerID)

	for _, kind := range promptresource.Kinds() {
		res, err := f.resources.Get(context.Background(), workspace.SharedID, kind)
		require.NoError(t, err)
		require.JSONEq(t, string(kind.EmptyContent()), string(res.Content))
	}
}

func TestWorkspaceService_CreatePersonal(t *testing.T) {
	t.Parallel()
	f := setup(t)
	alice, aliceCtx := f.registerUser(t, "alice@example.com")

	ws, err := f.workspaceSvc.CreatePersonal(aliceCtx, "Scratchpad")
	require.NoError(t, err)
	require.NotEqual(t, workspace.SharedID, ws.ID)
	require.Equal(t, alice.ID, *ws.OwnerID)
	require.False(t, ws.IsShared())

	for _, kind := range promptresource.Kinds() {
		res, err := f.resources.Get(context.Background(), ws.ID, kind)
		require.NoError(t, err)
		require.JSONEq(t, string(kind.EmptyContent()), string(res.Content))
	}

	owned, err := f.workspaceSvc.GetForOwner(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, ws.ID, owned[0].ID)
}

func TestWorkspaceService_CreatePersonal_EmptyName(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, aliceCtx := f.registerUser(t, "alice@example.com")

	_, err := f.workspaceSvc.CreatePersonal(aliceCtx, "  ")
	require.Error(t, err)
}

func TestWorkspaceService_Delete(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, adminCtx := f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	ws, err := f.workspaceSvc.CreatePersonal(aliceCtx, "Scratchpad")
	require.NoError(t, err)

	// Another regular user cannot delete it.
	require.ErrorIs(t, f.workspaceSvc.Delete(bobCtx, ws.ID), composables.ErrForbidden)

	// The owner can; the resource slots go with it.
	require.NoError(t, f.workspaceSvc.Delete(aliceCtx, ws.ID))
	_, err = f.workspaceSvc.GetByID(context.Background(), ws.ID)
	require.ErrorIs(t, err, workspace.ErrNotFound)
	_, err = f.resources.Get(context.Background(), ws.ID, promptresource.KindDefinitions)
	require.ErrorIs(t, err, promptresource.ErrNotFound)

	// The shared workspace is protected even from privileged users.
	require.ErrorIs(t, f.workspaceSvc.Delete(adminCtx, workspace.SharedID), workspace.ErrSharedProtected)
}
