package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/repo"
)

const changeRequestsTable = "change_requests"

func changeRequestColumns() string {
	return strings.Join([]string{
		"id",
		"workspace_id",
		"kind",
		"submitted_by",
		"submitted_at",
		"status",
		"baseline",
		"proposed",
		"description",
		"reviewed_by",
		"reviewed_at",
		"review_feedback",
	}, ", ")
}

type pgChangeRequestRepository struct{}

// NewChangeRequestRepository constructs a Postgres-backed change request
// repository.
func NewChangeRequestRepository() changerequest.Repository {
	return &pgChangeRequestRepository{}
}

func (r *pgChangeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	if cr.SubmittedAt.IsZero() {
		cr.SubmittedAt = time.Now().UTC()
	}

	fields := []string{
		"id",
		"workspace_id",
		"kind",
		"submitted_by",
		"submitted_at",
		"status",
		"baseline",
		"proposed",
		"description",
		"reviewed_by",
		"reviewed_at",
		"review_feedback",
	}
	args := []interface{}{
		cr.ID,
		cr.WorkspaceID,
		cr.Kind,
		cr.SubmittedBy,
		cr.SubmittedAt,
		cr.Status,
		[]byte(cr.Baseline),
		[]byte(cr.Proposed),
		cr.Description,
		cr.ReviewedBy,
		cr.ReviewedAt,
		cr.ReviewFeedback,
	}

	query := repo.Insert(changeRequestsTable, fields)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "insert change_requests")
	}
	return cr, nil
}

func (r *pgChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := repo.Join("SELECT", changeRequestColumns(), "FROM", changeRequestsTable, "WHERE id = $1")
	return scanChangeRequest(tx.QueryRow(ctx, query, id))
}

func (r *pgChangeRequestRepository) List(ctx context.Context, params changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildChangeRequestFilters(params)
	query := repo.Join(
		"SELECT", changeRequestColumns(),
		"FROM", changeRequestsTable,
		repo.JoinWhere(where...),
		"ORDER BY submitted_at DESC",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list change requests")
	}
	defer rows.Close()

	var results []changerequest.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *cr)
	}
	return results, rows.Err()
}

func (r *pgChangeRequestRepository) Update(ctx context.Context, id uuid.UUID, params changerequest.UpdateParams) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Status != nil {
		sets = append(sets, "status = "+arg(*params.Status))
	}
	if params.Baseline != nil {
		sets = append(sets, "baseline = "+arg(params.Baseline))
	}
	if params.Proposed != nil {
		sets = append(sets, "proposed = "+arg(params.Proposed))
	}
	if params.Description != nil {
		sets = append(sets, "description = "+arg(*params.Description))
	}
	if params.ClearReview {
		sets = append(sets, "reviewed_by = NULL", "reviewed_at = NULL", "review_feedback = NULL")
	} else {
		if params.ReviewedBy != nil {
			sets = append(sets, "reviewed_by = "+arg(*params.ReviewedBy))
		}
		if params.ReviewedAt != nil {
			sets = append(sets, "reviewed_at = "+arg(*params.ReviewedAt))
		}
		if params.ReviewFeedback != nil {
			sets = append(sets, "review_feedback = "+arg(*params.ReviewFeedback))
		}
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = %s",
		changeRequestsTable,
		strings.Join(sets, ", "),
		arg(id),
	)
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update change request")
	}
	if tag.RowsAffected() == 0 {
		return changerequest.ErrNotFound
	}
	return nil
}

func (r *pgChangeRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM "+changeRequestsTable+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "delete change request")
	}
	if tag.RowsAffected() == 0 {
		return changerequest.ErrNotFound
	}
	return nil
}

func (r *pgChangeRequestRepository) CountPending(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := "SELECT COUNT(*) FROM " + changeRequestsTable + " WHERE status = $1"
	if err := tx.QueryRow(ctx, query, changerequest.StatusPending).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count pending change requests")
	}
	return count, nil
}

func (r *pgChangeRequestRepository) HasPending(ctx context.Context, submitter uuid.UUID, kind promptresource.Kind) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM " + changeRequestsTable + " WHERE submitted_by = $1 AND kind = $2 AND status = $3)"
	if err := tx.QueryRow(ctx, query, submitter, kind, changerequest.StatusPending).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check pending change request")
	}
	return exists, nil
}

func buildChangeRequestFilters(params changerequest.FindParams) ([]string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.SubmittedBy != nil {
		args = append(args, *params.SubmittedBy)
		where = append(where, fmt.Sprintf("submitted_by = $%d", len(args)))
	}
	if params.Kind != nil {
		args = append(args, *params.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	return where, args
}

func scanChangeRequest(row pgx.Row) (*changerequest.ChangeRequest, error) {
	var cr changerequest.ChangeRequest
	err := row.Scan(
		&cr.ID,
		&cr.WorkspaceID,
		&cr.Kind,
		&cr.SubmittedBy,
		&cr.SubmittedAt,
		&cr.Status,
		&cr.Baseline,
		&cr.Proposed,
		&cr.Description,
		&cr.ReviewedBy,
		&cr.ReviewedAt,
		&cr.ReviewFeedback,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, changerequest.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan change request")
	}
	return &cr, nil
}
