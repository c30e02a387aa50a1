package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/repo"
)

const promptResourcesTable = "prompt_resources"

func promptResourceColumns() string {
	return "workspace_id, kind, content, updated_at"
}

type pgPromptResourceRepository struct{}

// NewPromptResourceRepository constructs a Postgres-backed prompt resource
// repository.
func NewPromptResourceRepository() promptresource.Repository {
	return &pgPromptResourceRepository{}
}

func (r *pgPromptResourceRepository) Get(ctx context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	return r.get(ctx, workspaceID, kind, "")
}

func (r *pgPromptResourceRepository) GetForUpdate(ctx context.Context, workspaceID string, kind promptresource.Kind) (*promptresource.Resource, error) {
	return r.get(ctx, workspaceID, kind, "FOR UPDATE")
}

func (r *pgPromptResourceRepository) get(ctx context.Context, workspaceID string, kind promptresource.Kind, locking string) (*promptresource.Resource, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join(
		"SELECT", promptResourceColumns(),
		"FROM", promptResourcesTable,
		"WHERE workspace_id = $1 AND kind = $2",
		locking,
	)
	var res promptresource.Resource
	err = tx.QueryRow(ctx, query, workspaceID, kind).Scan(&res.WorkspaceID, &res.Kind, &res.Content, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promptresource.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan prompt resource")
	}
	return &res, nil
}

func (r *pgPromptResourceRepository) Save(ctx context.Context, workspaceID string, kind promptresource.Kind, content json.RawMessage) (*promptresource.Resource, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO ` + promptResourcesTable + ` (workspace_id, kind, content, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id, kind)
		DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, query, workspaceID, kind, []byte(content), now); err != nil {
		return nil, errors.Wrap(err, "upsert prompt resource")
	}
	return &promptresource.Resource{
		WorkspaceID: workspaceID,
		Kind:        kind,
		Content:     content,
		UpdatedAt:   now,
	}, nil
}

func (r *pgPromptResourceRepository) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM "+promptResourcesTable+" WHERE workspace_id = $1", workspaceID); err != nil {
		return errors.Wrap(err, "delete prompt resources")
	}
	return nil
}
