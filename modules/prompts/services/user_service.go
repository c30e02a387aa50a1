package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/eventbus"
	"github.com/promptdesk/promptdesk/pkg/serrors"
)

// UserService manages accounts and role assignments.
type UserService struct {
	repo      user.Repository
	tx        Transactor
	publisher eventbus.EventBus
	roles     sync.Mutex
}

func NewUserService(repo user.Repository, tx Transactor, publisher eventbus.EventBus) *UserService {
	return &UserService{repo: repo, tx: tx, publisher: publisher}
}

// Register creates a new account. The very first registered user is granted
// the privileged role so the system always has at least one reviewer.
func (s *UserService) Register(ctx context.Context, email string) (*user.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, serrors.NewFieldRequiredError("email")
	}

	var created *user.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return err
		}
		role := user.RoleRegular
		if count == 0 {
			role = user.RolePrivileged
		}
		created, err = s.repo.Create(ctx, &user.User{Email: email, Role: role})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(user.CreatedEvent{Result: *created})
	return created, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

func (s *UserService) GetAll(ctx context.Context) ([]user.User, error) {
	return s.repo.GetAll(ctx)
}

// ChangeRole assigns a new role. Privileged callers only; changing one's own
// role is forbidden, and the last privileged user cannot be demoted.
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, role user.Role) (*user.User, error) {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.CanReview() {
		return nil, composables.ErrForbidden
	}
	if caller.ID == id {
		return nil, ErrOwnRoleChange
	}

	// Role writes serialize so two demotions cannot both observe the same
	// privileged count and drop the population to zero.
	s.roles.Lock()
	defer s.roles.Unlock()

	var (
		previous user.Role
		updated  *user.User
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		target, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		previous = target.Role
		if target.Role == role {
			updated = target
			return nil
		}
		if target.Role == user.RolePrivileged && role == user.RoleRegular {
			count, err := s.repo.CountByRole(ctx, user.RolePrivileged)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastPrivilegedUser
			}
		}
		if err := s.repo.UpdateRole(ctx, id, role); err != nil {
			return err
		}
		updated, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if previous != updated.Role {
		s.publisher.Publish(user.RoleChangedEvent{PreviousRole: previous, Result: *updated})
	}
	return updated, nil
}
