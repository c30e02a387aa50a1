package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
)

func TestPromptService_Get_DefaultContent(t *testing.T) {
	t.Parallel()
	f := setup(t)

	res, err := f.promptService.Get(context.Background(), workspace.SharedID, promptresource.KindDefinitions)
	require.NoError(t, err)
	require.JSONEq(t, `{"categories":[]}`, string(res.Content))

	_, err = f.promptService.Get(context.Background(), "ws-missing", promptresource.KindDefinitions)
	require.ErrorIs(t, err, workspace.ErrNotFound)
}

func TestPromptService_Write_PrivilegedAppliesDirectly(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, adminCtx := f.registerUser(t, "admin@example.com")

	result, err := f.promptService.Write(adminCtx, workspace.SharedID, promptresource.KindInstructions, json.RawMessage(`{"content":"be helpful"}`), nil)
	require.NoError(t, err)
	require.Equal(t, services.WriteApplied, result.Outcome)
	require.NotNil(t, result.Resource)
	require.Nil(t, result.ChangeRequest)
	require.JSONEq(t, `{"content":"be helpful"}`, string(result.Resource.Content))

	res, err := f.promptService.Get(context.Background(), workspace.SharedID, promptresource.KindInstructions)
	require.NoError(t, err)
	require.JSONEq(t, `{"content":"be helpful"}`, string(res.Content))
}

func TestPromptService_Write_RegularUserIsQueued(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	alice, aliceCtx := f.registerUser(t, "alice@example.com")

	result, err := f.promptService.Write(aliceCtx, workspace.SharedID, promptresource.KindDefinitions, json.RawMessage(`{"categories":["billing"]}`), nil)
	require.NoError(t, err)
	require.Equal(t, services.WriteQueued, result.Outcome)
	require.Nil(t, result.Resource)
	require.NotNil(t, result.ChangeRequest)
	require.Equal(t, changerequest.StatusPending, result.ChangeRequest.Status)
	require.Equal(t, alice.ID, result.ChangeRequest.SubmittedBy)

	// The resource itself is untouched until a reviewer approves.
	res, err := f.promptService.Get(context.Background(), workspace.SharedID, promptresource.KindDefinitions)
	require.NoError(t, err)
	require.JSONEq(t, `{"categories":[]}`, string(res.Content))

	// A second queued write for the same slot collides with the pending one.
	_, err = f.promptService.Write(aliceCtx, workspace.SharedID, promptresource.KindDefinitions, json.RawMessage(`{"categories":["other"]}`), nil)
	require.ErrorIs(t, err, services.ErrDuplicatePendingRequest)
}

func TestPromptService_Write_PersonalWorkspaceBypassesGate(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	ws, err := f.workspaceSvc.CreatePersonal(aliceCtx, "Alice's scratchpad")
	require.NoError(t, err)

	result, err := f.promptService.Write(aliceCtx, ws.ID, promptresource.KindExamples, json.RawMessage(`{"examples":["draft"]}`), nil)
	require.NoError(t, err)
	require.Equal(t, services.WriteApplied, result.Outcome)

	// Non-owners cannot write to a personal workspace at all.
	_, err = f.promptService.Write(bobCtx, ws.ID, promptresource.KindExamples, json.RawMessage(`{"examples":["intrusion"]}`), nil)
	require.ErrorIs(t, err, services.ErrNotWorkspaceOwner)
}
