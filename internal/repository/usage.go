package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type UsageLedgerRepository interface {
	// FindCurrent returns the ledger row whose period covers now, or nil.
	FindCurrent(ctx context.Context, customerID string, now time.Time) (*model.UsageLedgerEntry, error)
	Reserve(ctx context.Context, id string, count int) error
	Release(ctx context.Context, id string, count int) error
	// Consume moves one unit from reserved to used.
	Consume(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) UsageLedgerRepository
}

type usageLedgerRepo struct {
	db sqlxDB
}

func NewUsageLedgerRepository(db *sqlx.DB) UsageLedgerRepository {
	return &usageLedgerRepo{db: db}
}

func (r *usageLedgerRepo) WithTx(tx *sqlx.Tx) UsageLedgerRepository {
	return &usageLedgerRepo{db: tx}
}

func (r *usageLedgerRepo) FindCurrent(ctx context.Context, customerID string, now time.Time) (*model.UsageLedgerEntry, error) {
	var entry model.UsageLedgerEntry
	err := r.db.GetContext(ctx, &entry, `
		SELECT * FROM usage_ledger
		WHERE customer_id = $1 AND period_start <= $2 AND period_end > $2
		ORDER BY period_start DESC
		LIMIT 1
	`, customerID, now)
	return HandleNotFound(&entry, err)
}

func (r *usageLedgerRepo) Reserve(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE usage_ledger SET
			actions_reserved = actions_reserved + $2,
			updated_at = $3
		WHERE id = $1
	`, id, count, time.Now())
	return err
}

func (r *usageLedgerRepo) Release(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE usage_ledger SET
			actions_reserved = GREATEST(actions_reserved - $2, 0),
			updated_at = $3
		WHERE id = $1
	`, id, count, time.Now())
	return err
}

func (r *usageLedgerRepo) Consume(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE usage_ledger SET
			actions_used = actions_used + 1,
			actions_reserved = GREATEST(actions_reserved - 1, 0),
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}
