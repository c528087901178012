package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type ContentItemRepository interface {
	FindByID(ctx context.Context, id string) (*model.ContentItem, error)
	// FindBestUnused returns the highest-relevance unused item for the
	// business and platform, excluding the given item id.
	FindBestUnused(ctx context.Context, businessID, platform, excludeID string) (*model.ContentItem, error)
	MarkUsed(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) ContentItemRepository
}

type contentItemRepo struct {
	db sqlxDB
}

func NewContentItemRepository(db *sqlx.DB) ContentItemRepository {
	return &contentItemRepo{db: db}
}

func (r *contentItemRepo) WithTx(tx *sqlx.Tx) ContentItemRepository {
	return &contentItemRepo{db: tx}
}

func (r *contentItemRepo) FindByID(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.GetContext(ctx, &item, `
		SELECT * FROM content_items WHERE id = $1
	`, id)
	return HandleNotFound(&item, err)
}

func (r *contentItemRepo) FindBestUnused(ctx context.Context, businessID, platform, excludeID string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.GetContext(ctx, &item, `
		SELECT * FROM content_items
		WHERE business_id = $1 AND platform = $2 AND used = FALSE AND id != $3
		ORDER BY relevance_score DESC, created_at DESC
		LIMIT 1
	`, businessID, platform, excludeID)
	return HandleNotFound(&item, err)
}

func (r *contentItemRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE content_items SET used = TRUE WHERE id = $1
	`, id)
	return err
}
