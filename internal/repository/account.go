package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

type ExecutionAccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.ExecutionAccount, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.ExecutionAccount, error)
	// FindActiveByChannel returns active accounts ordered oldest-used first
	// so rotation spreads load across the pool.
	FindActiveByChannel(ctx context.Context, channel model.ChannelKind) ([]model.ExecutionAccount, error)
	Create(ctx context.Context, params model.CreateExecutionAccountParams) (*model.ExecutionAccount, error)
	SetActive(ctx context.Context, id string, active bool) (*model.ExecutionAccount, error)
	RecordLoginFailure(ctx context.Context, id string, deactivateAt int) (*model.ExecutionAccount, error)
	ResetFailures(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
	SaveSession(ctx context.Context, id string, session json.RawMessage) error
	Delete(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) ExecutionAccountRepository
}

type executionAccountRepo struct {
	db sqlxDB
}

func NewExecutionAccountRepository(db *sqlx.DB) ExecutionAccountRepository {
	return &executionAccountRepo{db: db}
}

func (r *executionAccountRepo) WithTx(tx *sqlx.Tx) ExecutionAccountRepository {
	return &executionAccountRepo{db: tx}
}

func (r *executionAccountRepo) FindByID(ctx context.Context, id string) (*model.ExecutionAccount, error) {
	var account model.ExecutionAccount
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM execution_accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *executionAccountRepo) FindAll(ctx context.Context, limit, offset int) ([]model.ExecutionAccount, error) {
	var accounts []model.ExecutionAccount
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT * FROM execution_accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *executionAccountRepo) FindActiveByChannel(ctx context.Context, channel model.ChannelKind) ([]model.ExecutionAccount, error) {
	var accounts []model.ExecutionAccount
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT * FROM execution_accounts
		WHERE channel = $1 AND active = TRUE
		ORDER BY last_used_at ASC NULLS FIRST
	`, channel)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *executionAccountRepo) Create(ctx context.Context, params model.CreateExecutionAccountParams) (*model.ExecutionAccount, error) {
	var account model.ExecutionAccount
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO execution_accounts (channel, identity, secret, proxy_url)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.Channel, params.Identity, params.Secret, params.ProxyURL)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *executionAccountRepo) SetActive(ctx context.Context, id string, active bool) (*model.ExecutionAccount, error) {
	var account model.ExecutionAccount
	err := r.db.GetContext(ctx, &account, `
		UPDATE execution_accounts SET
			active = $2,
			failure_count = CASE WHEN $2 THEN 0 ELSE failure_count END,
			updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, active, time.Now())
	return HandleNotFound(&account, err)
}

// RecordLoginFailure bumps the circuit breaker and deactivates the account
// once the threshold is reached, in a single statement so concurrent
// failures cannot lose the deactivation.
func (r *executionAccountRepo) RecordLoginFailure(ctx context.Context, id string, deactivateAt int) (*model.ExecutionAccount, error) {
	var account model.ExecutionAccount
	err := r.db.GetContext(ctx, &account, `
		UPDATE execution_accounts SET
			failure_count = failure_count + 1,
			active = CASE WHEN failure_count + 1 >= $2 THEN FALSE ELSE active END,
			updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, deactivateAt, time.Now())
	return HandleNotFound(&account, err)
}

func (r *executionAccountRepo) ResetFailures(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE execution_accounts SET
			failure_count = 0,
			last_used_at = $2,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *executionAccountRepo) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE execution_accounts SET
			last_used_at = $2,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *executionAccountRepo) SaveSession(ctx context.Context, id string, session json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE execution_accounts SET
			session_data = $2,
			session_refreshed_at = $3,
			updated_at = $3
		WHERE id = $1
	`, id, session, time.Now())
	return err
}

func (r *executionAccountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM execution_accounts WHERE id = $1`, id)
	return err
}
