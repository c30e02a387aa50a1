package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/modules/prompts/infrastructure/persistence/memory"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
)

func TestChangeRequestService_Create(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	desc := "add a category"
	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:        promptresource.KindDefinitions,
		Proposed:    json.RawMessage(`{"categories":["billing"]}`),
		Description: &desc,
	})
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusPending, cr.Status)
	require.Equal(t, workspace.SharedID, cr.WorkspaceID)
	require.JSONEq(t, `{"categories":[]}`, string(cr.Baseline))
	require.JSONEq(t, `{"categories":["billing"]}`, string(cr.Proposed))
	require.Nil(t, cr.ReviewedBy)
}

func TestChangeRequestService_Create_DuplicatePending(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	_, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["a"]}`),
	})
	require.NoError(t, err)

	_, err = f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["b"]}`),
	})
	require.ErrorIs(t, err, services.ErrDuplicatePendingRequest)

	// A different kind is a different slot and does not collide.
	_, err = f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindInstructions,
		Proposed: json.RawMessage(`{"content":"be nice"}`),
	})
	require.NoError(t, err)
}

func TestChangeRequestService_Create_InvalidJSON(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	_, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":`),
	})
	require.Error(t, err)
}

func TestChangeRequestService_Approve(t *testing.T) {
	t.Parallel()
	f := setup(t)
	reviewer, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindDefinitions,
		Proposed: json.RawMessage(`{"categories":["billing"]}`),
	})
	require.NoError(t, err)

	feedback := "looks good"
	approved, err := f.requestService.Approve(reviewerCtx, cr.ID, &feedback)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, approved.Status)
	require.Equal(t, reviewer.ID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	require.Equal(t, "looks good", *approved.ReviewFeedback)

	res, err := f.resources.Get(context.Background(), workspace.SharedID, promptresource.KindDefinitions)
	require.NoError(t, err)
	require.JSONEq(t, `{"categories":["billing"]}`, string(res.Content))
}

func TestChangeRequestService_Approve_BaselineConflict(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindDefinitions,
		Proposed: json.RawMessage(`{"categories":["billing"]}`),
	})
	require.NoError(t, err)

	// The resource moves on after the baseline was captured.
	_, err = f.resources.Save(context.Background(), workspace.SharedID, promptresource.KindDefinitions, json.RawMessage(`{"categories":["support"]}`))
	require.NoError(t, err)

	_, err = f.requestService.Approve(reviewerCtx, cr.ID, nil)
	require.ErrorIs(t, err, services.ErrBaselineConflict)

	// The request stays pending and the resource keeps its current content.
	got, err := f.requestService.GetByID(context.Background(), cr.ID)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusPending, got.Status)

	res, err := f.resources.Get(context.Background(), workspace.SharedID, promptresource.KindDefinitions)
	require.NoError(t, err)
	require.JSONEq(t, `{"categories":["support"]}`, string(res.Content))
}

func TestChangeRequestService_Approve_SelfReviewForbidden(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, adminCtx := f.registerUser(t, "admin@example.com")

	// A privileged user submitting through the request workflow still cannot
	// decide their own request.
	cr, err := f.requestService.Create(adminCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	_, err = f.requestService.Approve(adminCtx, cr.ID, nil)
	require.ErrorIs(t, err, services.ErrSelfReview)
}

func TestChangeRequestService_Approve_RequiresPrivilegedRole(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	cr, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	_, err = f.requestService.Approve(bobCtx, cr.ID, nil)
	require.ErrorIs(t, err, services.ErrReviewerNotPrivileged)
}

func TestChangeRequestService_Approve_NotPending(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	_, err = f.requestService.Reject(reviewerCtx, cr.ID, nil)
	require.NoError(t, err)

	_, err = f.requestService.Approve(reviewerCtx, cr.ID, nil)
	require.ErrorIs(t, err, services.ErrInvalidStatusTransition)
}

func TestChangeRequestService_Reject(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindInstructions,
		Proposed: json.RawMessage(`{"content":"new instructions"}`),
	})
	require.NoError(t, err)

	feedback := "too vague"
	rejected, err := f.requestService.Reject(reviewerCtx, cr.ID, &feedback)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusRejected, rejected.Status)
	require.Equal(t, "too vague", *rejected.ReviewFeedback)

	// Rejection never touches the resource.
	res, err := f.resources.Get(context.Background(), workspace.SharedID, promptresource.KindInstructions)
	require.NoError(t, err)
	require.JSONEq(t, `{"content":""}`, string(res.Content))
}

func TestChangeRequestService_Revise(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindDefinitions,
		Proposed: json.RawMessage(`{"categories":["billing"]}`),
	})
	require.NoError(t, err)

	feedback := "wrong category"
	_, err = f.requestService.Reject(reviewerCtx, cr.ID, &feedback)
	require.NoError(t, err)

	// Resource moves on; the revision must capture the new baseline.
	_, err = f.resources.Save(context.Background(), workspace.SharedID, promptresource.KindDefinitions, json.RawMessage(`{"categories":["support"]}`))
	require.NoError(t, err)

	desc := "second attempt"
	revised, err := f.requestService.Revise(submitterCtx, cr.ID, services.ReviseParams{
		Proposed:    json.RawMessage(`{"categories":["support","billing"]}`),
		Description: &desc,
	})
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusPending, revised.Status)
	require.JSONEq(t, `{"categories":["support"]}`, string(revised.Baseline))
	require.Nil(t, revised.ReviewedBy)
	require.Nil(t, revised.ReviewedAt)
	require.Nil(t, revised.ReviewFeedback)

	// The revised request now approves cleanly against the fresh baseline.
	approved, err := f.requestService.Approve(reviewerCtx, cr.ID, nil)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, approved.Status)
}

func TestChangeRequestService_Revise_OnlySubmitter(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	cr, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)
	_, err = f.requestService.Reject(reviewerCtx, cr.ID, nil)
	require.NoError(t, err)

	_, err = f.requestService.Revise(bobCtx, cr.ID, services.ReviseParams{
		Proposed: json.RawMessage(`{"examples":["y"]}`),
	})
	require.ErrorIs(t, err, services.ErrNotSubmitter)
}

func TestChangeRequestService_Revise_OnlyRejected(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	_, err = f.requestService.Revise(aliceCtx, cr.ID, services.ReviseParams{
		Proposed: json.RawMessage(`{"examples":["y"]}`),
	})
	require.ErrorIs(t, err, services.ErrInvalidStatusTransition)
}

func TestChangeRequestService_Withdraw(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	require.NoError(t, f.requestService.Withdraw(aliceCtx, cr.ID))

	_, err = f.requestService.GetByID(context.Background(), cr.ID)
	require.ErrorIs(t, err, changerequest.ErrNotFound)

	// Withdrawal frees the slot for a new submission.
	_, err = f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["y"]}`),
	})
	require.NoError(t, err)
}

func TestChangeRequestService_Withdraw_Guards(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, reviewerCtx := f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	cr, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["x"]}`),
	})
	require.NoError(t, err)

	err = f.requestService.Withdraw(bobCtx, cr.ID)
	require.ErrorIs(t, err, services.ErrNotSubmitter)

	_, err = f.requestService.Approve(reviewerCtx, cr.ID, nil)
	require.NoError(t, err)

	err = f.requestService.Withdraw(aliceCtx, cr.ID)
	require.ErrorIs(t, err, services.ErrInvalidStatusTransition)
}

func TestChangeRequestService_List(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.registerUser(t, "admin@example.com")
	alice, aliceCtx := f.registerUser(t, "alice@example.com")
	_, bobCtx := f.registerUser(t, "bob@example.com")

	first, err := f.requestService.Create(aliceCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindDefinitions,
		Proposed: json.RawMessage(`{"categories":["a"]}`),
	})
	require.NoError(t, err)
	second, err := f.requestService.Create(bobCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["b"]}`),
	})
	require.NoError(t, err)

	all, err := f.requestService.List(context.Background(), changerequest.FindParams{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Most recent submission first.
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, first.ID, all[1].ID)

	mine, err := f.requestService.List(context.Background(), changerequest.FindParams{SubmittedBy: &alice.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, first.ID, mine[0].ID)

	pending := changerequest.StatusPending
	count, err := f.requestService.CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	byStatus, err := f.requestService.List(context.Background(), changerequest.FindParams{Status: &pending})
	require.NoError(t, err)
	require.Len(t, byStatus, 2)
}

// trackedResourceRepo runs a callback whenever a locking compare-read
// happens, letting tests schedule a competing writer at that exact point.
type trackedResourceRepo struct {
	*memory.PromptResourceRepository
	onGetForUpdate func()
}

func (r *trackedResourceRepo) GetForUpdate(ctx context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	if r.onGetForUpdate != nil {
		r.onGetForUpdate()
	}
	return r.PromptResourceRepository.GetForUpdate(ctx, workspaceID, kind)
}

func TestChangeRequestService_Approve_SerializesWithDirectWrites(t *testing.T) {
	t.Parallel()
	tracked := &trackedResourceRepo{PromptResourceRepository: memory.NewPromptResourceRepository()}
	f := setupWithResources(t, tracked)
	_, adminCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindExamples,
		Proposed: json.RawMessage(`{"examples":["proposed"]}`),
	})
	require.NoError(t, err)

	// Once the approval has read the slot for its baseline compare, fire a
	// privileged direct write at the same slot. It must wait for the
	// approval to finish rather than land between the compare and the
	// resource write, where the approval would silently overwrite it.
	var wg sync.WaitGroup
	directErr := make(chan error, 1)
	tracked.onGetForUpdate = func() {
		tracked.onGetForUpdate = nil
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.promptService.Write(adminCtx, workspace.SharedID, promptresource.KindExamples, json.RawMessage(`{"examples":["direct-by-admin"]}`), nil)
			directErr <- err
		}()
		time.Sleep(50 * time.Millisecond)
	}

	approved, err := f.requestService.Approve(adminCtx, cr.ID, nil)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, approved.Status)

	wg.Wait()
	require.NoError(t, <-directErr)

	// The direct write ran after the approval and is the final content.
	res, err := f.resources.Get(context.Background(), workspace.SharedID, promptresource.KindExamples)
	require.NoError(t, err)
	require.JSONEq(t, `{"examples":["direct-by-admin"]}`, string(res.Content))
}

func TestChangeRequestService_Withdraw_SerializesWithApprove(t *testing.T) {
	t.Parallel()
	tracked := &trackedResourceRepo{PromptResourceRepository: memory.NewPromptResourceRepository()}
	f := setupWithResources(t, tracked)
	_, adminCtx := f.registerUser(t, "admin@example.com")
	_, submitterCtx := f.registerUser(t, "alice@example.com")

	cr, err := f.requestService.Create(submitterCtx, services.CreateChangeRequestParams{
		Kind:     promptresource.KindInstructions,
		Proposed: json.RawMessage(`{"content":"be nice"}`),
	})
	require.NoError(t, err)

	// Fire the submitter's withdraw mid-approval. It must block on the slot
	// until the approval commits, not delete the request between the
	// approval's resource write and its status update.
	var wg sync.WaitGroup
	withdrawErr := make(chan error, 1)
	tracked.onGetForUpdate = func() {
		tracked.onGetForUpdate = nil
		wg.Add(1)
		go func() {
			defer wg.Done()
			withdrawErr <- f.requestService.Withdraw(submitterCtx, cr.ID)
		}()
		time.Sleep(50 * time.Millisecond)
	}

	approved, err := f.requestService.Approve(adminCtx, cr.ID, nil)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, approved.Status)

	wg.Wait()
	require.ErrorIs(t, <-withdrawErr, services.ErrInvalidStatusTransition)

	// The decided request and its effect both survive.
	kept, err := f.requestService.GetByID(context.Background(), cr.ID)
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, kept.Status)
	res, err := f.resources.Get(context.Background(), workspace.SharedID, promptresource.KindInstructions)
	require.NoError(t, err)
	require.JSONEq(t, `{"content":"be nice"}`, string(res.Content))
}
