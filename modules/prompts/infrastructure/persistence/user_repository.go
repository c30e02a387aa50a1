package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/repo"
)

const usersTable = "users"

func userColumns() string {
	return "id, email, role, created_at, updated_at"
}

type pgUserRepository struct{}

// NewUserRepository constructs a Postgres-backed user repository.
func NewUserRepository() user.Repository {
	return &pgUserRepository{}
}

func (r *pgUserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	fields := []string{"id", "email", "role", "created_at", "updated_at"}
	query := repo.Insert(usersTable, fields)
	if _, err := tx.Exec(ctx, query, u.ID, u.Email, u.Role, u.CreatedAt, u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, "insert users")
	}
	return u, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", userColumns(), "FROM", usersTable, "WHERE id = $1")
	return scanUser(tx.QueryRow(ctx, query, id))
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", userColumns(), "FROM", usersTable, "WHERE email = $1")
	return scanUser(tx.QueryRow(ctx, query, email))
}

func (r *pgUserRepository) GetAll(ctx context.Context) ([]user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", userColumns(), "FROM", usersTable, "ORDER BY created_at ASC")
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	var results []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *u)
	}
	return results, rows.Err()
}

func (r *pgUserRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+usersTable).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return count, nil
}

func (r *pgUserRepository) CountByRole(ctx context.Context, role user.Role) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := "SELECT COUNT(*) FROM " + usersTable + " WHERE role = $1"
	if err := tx.QueryRow(ctx, query, role).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count users by role")
	}
	return count, nil
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role user.Role) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := "UPDATE " + usersTable + " SET role = $1, updated_at = $2 WHERE id = $3"
	tag, err := tx.Exec(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "update user role")
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
