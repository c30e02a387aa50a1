package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/repo"
)

const workspacesTable = "workspaces"

func workspaceColumns() string {
	return "id, name, owner_id, created_at"
}

type pgWorkspaceRepository struct{}

// NewWorkspaceRepository constructs a Postgres-backed workspace repository.
func NewWorkspaceRepository() workspace.Repository {
	return &pgWorkspaceRepository{}
}

func (r *pgWorkspaceRepository) Create(ctx context.Context, w *workspace.Workspace) (*workspace.Workspace, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	fields := []string{"id", "name", "owner_id", "created_at"}
	query := repo.Insert(workspacesTable, fields)
	if _, err := tx.Exec(ctx, query, w.ID, w.Name, w.OwnerID, w.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "insert workspaces")
	}
	return w, nil
}

func (r *pgWorkspaceRepository) GetByID(ctx context.Context, id string) (*workspace.Workspace, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", workspaceColumns(), "FROM", workspacesTable, "WHERE id = $1")
	return scanWorkspace(tx.QueryRow(ctx, query, id))
}

func (r *pgWorkspaceRepository) GetAll(ctx context.Context) ([]workspace.Workspace, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", workspaceColumns(), "FROM", workspacesTable, "ORDER BY created_at ASC")
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list workspaces")
	}
	defer rows.Close()
	return collectWorkspaces(rows)
}

func (r *pgWorkspaceRepository) GetForOwner(ctx context.Context, ownerID uuid.UUID) ([]workspace.Workspace, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", workspaceColumns(), "FROM", workspacesTable, "WHERE owner_id = $1 ORDER BY created_at ASC")
	rows, err := tx.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list workspaces for owner")
	}
	defer rows.Close()
	return collectWorkspaces(rows)
}

func (r *pgWorkspaceRepository) Delete(ctx context.Context, id string) error {
	if id == workspace.SharedID {
		return workspace.ErrSharedProtected
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM "+workspacesTable+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "delete workspace")
	}
	if tag.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

func collectWorkspaces(rows pgx.Rows) ([]workspace.Workspace, error) {
	var results []workspace.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *w)
	}
	return results, rows.Err()
}

func scanWorkspace(row pgx.Row) (*workspace.Workspace, error) {
	var w workspace.Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.OwnerID, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan workspace")
	}
	return &w, nil
}
