package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type CustomerRepository interface {
	FindByID(ctx context.Context, id string) (*model.Customer, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Customer, error)
	WithTx(tx *sqlx.Tx) CustomerRepository
}

type customerRepo struct {
	db sqlxDB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) WithTx(tx *sqlx.Tx) CustomerRepository {
	return &customerRepo{db: tx}
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.GetContext(ctx, &customer, `
		SELECT * FROM customers WHERE id = $1 AND disabled_at IS NULL
	`, id)
	return HandleNotFound(&customer, err)
}

func (r *customerRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.GetContext(ctx, &customer, `
		SELECT * FROM customers
		WHERE api_token_hash = $1 AND disabled_at IS NULL
	`, tokenHash)
	return HandleNotFound(&customer, err)
}
