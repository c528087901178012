package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type ActionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Action, error)
	List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
	Count(ctx context.Context, filter model.ActionFilter) (int, error)
	Create(ctx context.Context, params model.CreateActionParams) (*model.Action, error)
	Update(ctx context.Context, id string, params model.UpdateActionParams) (*model.Action, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.ActionStatus) (*model.Action, error)
	MarkApproved(ctx context.Context, id string) (*model.Action, error)
	MarkCompleted(ctx context.Context, id string, externalRef string, executedAt time.Time) (*model.Action, error)
	MarkFailed(ctx context.Context, id string, errorMessage string) (*model.Action, error)
	FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]model.Action, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ActionRepository
}

type actionRepo struct {
	db sqlxDB
}

func NewActionRepository(db *sqlx.DB) ActionRepository {
	return &actionRepo{db: db}
}

func (r *actionRepo) WithTx(tx *sqlx.Tx) ActionRepository {
	return &actionRepo{db: tx}
}

func (r *actionRepo) FindByID(ctx context.Context, id string) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		SELECT * FROM actions WHERE id = $1
	`, id)
	return HandleNotFound(&action, err)
}

func filterClauses(filter model.ActionFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("business_id IN (SELECT id FROM businesses WHERE customer_id = $%d)", len(args)))
	}
	if filter.BusinessID != nil {
		args = append(args, *filter.BusinessID)
		clauses = append(clauses, fmt.Sprintf("business_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Platform != nil {
		args = append(args, *filter.Platform)
		clauses = append(clauses, fmt.Sprintf("platform = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return where, args
}

func (r *actionRepo) List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	where, args := filterClauses(filter)

	args = append(args, filter.Limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	var actions []model.Action
	query := fmt.Sprintf(`
		SELECT * FROM actions %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, limitPos, offsetPos)
	if err := r.db.SelectContext(ctx, &actions, query, args...); err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *actionRepo) Count(ctx context.Context, filter model.ActionFilter) (int, error) {
	where, args := filterClauses(filter)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM actions %s`, where)
	err := r.db.GetContext(ctx, &count, query, args...)
	return count, err
}

func (r *actionRepo) Create(ctx context.Context, params model.CreateActionParams) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		INSERT INTO actions (
			business_id, platform, target_url, target_title, target_snippet,
			comment_text, relevance_score, status, auto_approved, content_item_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *
	`, params.BusinessID, params.Platform, params.TargetURL, params.TargetTitle, params.TargetSnippet,
		params.CommentText, params.RelevanceScore, params.Status, params.AutoApproved, params.ContentItemID)
	if err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *actionRepo) Update(ctx context.Context, id string, params model.UpdateActionParams) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		UPDATE actions SET
			edited_comment_text = COALESCE($2, edited_comment_text),
			scheduled_for = COALESCE($3, scheduled_for),
			updated_at = $4
		WHERE id = $1
		RETURNING *
	`, id, params.EditedCommentText, params.ScheduledFor, time.Now())
	return HandleNotFound(&action, err)
}

func (r *actionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE id = $1`, id)
	return err
}

func (r *actionRepo) UpdateStatus(ctx context.Context, id string, status model.ActionStatus) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		UPDATE actions SET
			status = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, status, time.Now())
	return HandleNotFound(&action, err)
}

func (r *actionRepo) MarkApproved(ctx context.Context, id string) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		UPDATE actions SET
			status = $2,
			auto_approved = FALSE,
			updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, model.ActionStatusApproved, time.Now())
	return HandleNotFound(&action, err)
}

func (r *actionRepo) MarkCompleted(ctx context.Context, id string, externalRef string, executedAt time.Time) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		UPDATE actions SET
			status = $2,
			external_ref = $3,
			executed_at = $4,
			error_message = NULL,
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`, id, model.ActionStatusCompleted, externalRef, executedAt, time.Now())
	return HandleNotFound(&action, err)
}

func (r *actionRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (*model.Action, error) {
	var action model.Action
	err := r.db.GetContext(ctx, &action, `
		UPDATE actions SET
			status = $2,
			error_message = $3,
			retry_count = retry_count + 1,
			updated_at = $4
		WHERE id = $1
		RETURNING *
	`, id, model.ActionStatusFailed, errorMessage, time.Now())
	return HandleNotFound(&action, err)
}

// FindStuckExecuting is the reconciliation hook: actions left in executing
// past the threshold by a crash between dispatch and result handling.
func (r *actionRepo) FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]model.Action, error) {
	var actions []model.Action
	err := r.db.SelectContext(ctx, &actions, `
		SELECT * FROM actions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
	`, model.ActionStatusExecuting, olderThan)
	if err != nil {
		return nil, err
	}
	return actions, nil
}
