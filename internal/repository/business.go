package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type BusinessRepository interface {
	FindByID(ctx context.Context, id string) (*model.Business, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]model.Business, error)
	WithTx(tx *sqlx.Tx) BusinessRepository
}

type businessRepo struct {
	db sqlxDB
}

func NewBusinessRepository(db *sqlx.DB) BusinessRepository {
	return &businessRepo{db: db}
}

func (r *businessRepo) WithTx(tx *sqlx.Tx) BusinessRepository {
	return &businessRepo{db: tx}
}

func (r *businessRepo) FindByID(ctx context.Context, id string) (*model.Business, error) {
	var business model.Business
	err := r.db.GetContext(ctx, &business, `
		SELECT * FROM businesses WHERE id = $1
	`, id)
	return HandleNotFound(&business, err)
}

func (r *businessRepo) FindByCustomerID(ctx context.Context, customerID string) ([]model.Business, error) {
	var businesses []model.Business
	err := r.db.SelectContext(ctx, &businesses, `
		SELECT * FROM businesses
		WHERE customer_id = $1
		ORDER BY created_at ASC
	`, customerID)
	if err != nil {
		return nil, err
	}
	return businesses, nil
}
