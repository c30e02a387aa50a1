package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/composables"
)

func TestUserService_Register_FirstUserIsPrivileged(t *testing.T) {
	t.Parallel()
	f := setup(t)

	first, err := f.userService.Register(context.Background(), "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, user.RolePrivileged, first.Role)

	second, err := f.userService.Register(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.RoleRegular, second.Role)
}

func TestUserService_Register_NormalizesEmail(t *testing.T) {
	t.Parallel()
	f := setup(t)

	created, err := f.userService.Register(context.Background(), "  Admin@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", created.Email)

	_, err = f.userService.Register(context.Background(), "admin@example.com")
	require.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestUserService_Register_EmptyEmail(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.userService.Register(context.Background(), "   ")
	require.Error(t, err)
}

func TestUserService_ChangeRole(t *testing.T) {
	t.Parallel()
	f := setup(t)
	_, adminCtx := f.registerUser(t, "admin@example.com")
	alice, _ := f.registerUser(t, "alice@example.com")

	promoted, err := f.userService.ChangeRole(adminCtx, alice.ID, user.RolePrivileged)
	require.NoError(t, err)
	require.Equal(t, user.RolePrivileged, promoted.Role)

	demoted, err := f.userService.ChangeRole(adminCtx, alice.ID, user.RoleRegular)
	require.NoError(t, err)
	require.Equal(t, user.RoleRegular, demoted.Role)
}

func TestUserService_ChangeRole_OwnRoleForbidden(t *testing.T) {
	t.Parallel()
	f := setup(t)
	admin, adminCtx := f.registerUser(t, "admin@example.com")

	_, err := f.userService.ChangeRole(adminCtx, admin.ID, user.RoleRegular)
	require.ErrorIs(t, err, services.ErrOwnRoleChange)
}

func TestUserService_ChangeRole_LastPrivilegedProtected(t *testing.T) {
	t.Parallel()
	f := setup(t)
	admin, adminCtx := f.registerUser(t, "admin@example.com")
	alice, _ := f.registerUser(t, "alice@example.com")

	promoted, err := f.userService.ChangeRole(adminCtx, alice.ID, user.RolePrivileged)
	require.NoError(t, err)
	aliceCtx := composables.WithUser(context.Background(), promoted)

	// Two privileged users: demoting one of them is fine.
	_, err = f.userService.ChangeRole(aliceCtx, admin.ID, user.RoleRegular)
	require.NoError(t, err)

	// Alice is now the only privileged user left; demoting her is refused
	// even for a caller whose context still carries a privileged snapshot.
	_, err = f.userService.ChangeRole(adminCtx, alice.ID, user.RoleRegular)
	require.ErrorIs(t, err, services.ErrLastPrivilegedUser)
}

func TestUserService_ChangeRole_RegularCallerForbidden(t *testing.T) {
	t.Parallel()
	f := setup(t)
	admin, _ := f.registerUser(t, "admin@example.com")
	_, aliceCtx := f.registerUser(t, "alice@example.com")

	_, err := f.userService.ChangeRole(aliceCtx, admin.ID, user.RoleRegular)
	require.ErrorIs(t, err, composables.ErrForbidden)
}

func TestUserService_ChangeRole_ConcurrentDemotionsKeepFloor(t *testing.T) {
	t.Parallel()
	f := setup(t)
	admin, adminCtx := f.registerUser(t, "admin@example.com")
	alice, _ := f.registerUser(t, "alice@example.com")

	promoted, err := f.userService.ChangeRole(adminCtx, alice.ID, user.RolePrivileged)
	require.NoError(t, err)
	aliceCtx := composables.WithUser(context.Background(), promoted)

	// The two remaining privileged users demote each other at the same
	// time. Whichever demotion runs second must see a count of one and be
	// refused, or the privileged population would drop to zero.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.userService.ChangeRole(adminCtx, alice.ID, user.RoleRegular)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := f.userService.ChangeRole(aliceCtx, admin.ID, user.RoleRegular)
		errs <- err
	}()
	wg.Wait()
	close(errs)

	var refused int
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, services.ErrLastPrivilegedUser)
			refused++
		}
	}
	require.Equal(t, 1, refused)

	count, err := f.users.CountByRole(context.Background(), user.RolePrivileged)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
