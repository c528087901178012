package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
)

type mockActionRepo struct {
	mock.Mock
}

func (m *mockActionRepo) FindByID(ctx context.Context, id string) (*model.Action, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Action), args.Error(1)
}

func (m *mockActionRepo) Count(ctx context.Context, filter model.ActionFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockActionRepo) Create(ctx context.Context, params model.CreateActionParams) (*model.Action, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) Update(ctx context.Context, id string, params model.UpdateActionParams) (*model.Action, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockActionRepo) UpdateStatus(ctx context.Context, id string, status model.ActionStatus) (*model.Action, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) MarkApproved(ctx context.Context, id string) (*model.Action, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) MarkCompleted(ctx context.Context, id string, externalRef string, executedAt time.Time) (*model.Action, error) {
	args := m.Called(ctx, id, externalRef, executedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (*model.Action, error) {
	args := m.Called(ctx, id, errorMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]model.Action, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Action), args.Error(1)
}

func (m *mockActionRepo) WithTx(tx *sqlx.Tx) repository.ActionRepository {
	return m
}

type mockBusinessRepo struct {
	mock.Mock
}

func (m *mockBusinessRepo) FindByID(ctx context.Context, id string) (*model.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *mockBusinessRepo) FindByCustomerID(ctx context.Context, customerID string) ([]model.Business, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Business), args.Error(1)
}

func (m *mockBusinessRepo) WithTx(tx *sqlx.Tx) repository.BusinessRepository {
	return m
}

type mockUsageRepo struct {
	mock.Mock
}

func (m *mockUsageRepo) FindCurrent(ctx context.Context, customerID string, now time.Time) (*model.UsageLedgerEntry, error) {
	args := m.Called(ctx, customerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UsageLedgerEntry), args.Error(1)
}

func (m *mockUsageRepo) Reserve(ctx context.Context, id string, count int) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func (m *mockUsageRepo) Release(ctx context.Context, id string, count int) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func (m *mockUsageRepo) Consume(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUsageRepo) WithTx(tx *sqlx.Tx) repository.UsageLedgerRepository {
	return m
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.ExecutionAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) FindAll(ctx context.Context, limit, offset int) ([]model.ExecutionAccount, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) FindActiveByChannel(ctx context.Context, channel model.ChannelKind) ([]model.ExecutionAccount, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, params model.CreateExecutionAccountParams) (*model.ExecutionAccount, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) SetActive(ctx context.Context, id string, active bool) (*model.ExecutionAccount, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) RecordLoginFailure(ctx context.Context, id string, deactivateAt int) (*model.ExecutionAccount, error) {
	args := m.Called(ctx, id, deactivateAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionAccount), args.Error(1)
}

func (m *mockAccountRepo) ResetFailures(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepo) TouchLastUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepo) SaveSession(ctx context.Context, id string, session json.RawMessage) error {
	args := m.Called(ctx, id, session)
	return args.Error(0)
}

func (m *mockAccountRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.ExecutionAccountRepository {
	return m
}

type mockContentRepo struct {
	mock.Mock
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*model.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContentItem), args.Error(1)
}

func (m *mockContentRepo) FindBestUnused(ctx context.Context, businessID, platform, excludeID string) (*model.ContentItem, error) {
	args := m.Called(ctx, businessID, platform, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContentItem), args.Error(1)
}

func (m *mockContentRepo) MarkUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockContentRepo) WithTx(tx *sqlx.Tx) repository.ContentItemRepository {
	return m
}

type mockProviderDirectory struct {
	mock.Mock
}

func (m *mockProviderDirectory) ResolveActive(ctx context.Context, platform string, actionType model.ActionType) (*model.ProviderMapping, error) {
	args := m.Called(ctx, platform, actionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderMapping), args.Error(1)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Customer, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) WithTx(tx *sqlx.Tx) repository.CustomerRepository {
	return m
}
