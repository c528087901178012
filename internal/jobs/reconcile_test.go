package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/service"
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
	return args.Get(0).([]model.Action), args.Error(1)
}

func (m *mockActionRepo) Count(ctx context.Context, filter model.ActionFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockActionRepo) Create(ctx context.Context, params model.CreateActionParams) (*model.Action, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) Update(ctx context.Context, id string, params model.UpdateActionParams) (*model.Action, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockActionRepo) UpdateStatus(ctx context.Context, id string, status model.ActionStatus) (*model.Action, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) MarkApproved(ctx context.Context, id string) (*model.Action, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Action), args.Error(1)
}

func (m *mockActionRepo) MarkCompleted(ctx context.Context, id string, externalRef string, executedAt time.Time) (*model.Action, error) {
	args := m.Called(ctx, id, externalRef, executedAt)
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

func stuckAction(id string, retryCount int) model.Action {
	return model.Action{
		ID:         id,
		BusinessID: "biz-1",
		Platform:   "reddit",
		Status:     model.ActionStatusExecuting,
		RetryCount: retryCount,
	}
}

func TestSweep(t *testing.T) {
	t.Run("fails stuck actions past the threshold", func(t *testing.T) {
		actionRepo := new(mockActionRepo)
		bizRepo := new(mockBusinessRepo)
		usageRepo := new(mockUsageRepo)
		job := NewReconcileJob(actionRepo, bizRepo, service.NewQuotaService(usageRepo), 10*time.Minute, time.Hour)

		actionRepo.On("FindStuckExecuting", mock.Anything, mock.Anything).
			Return([]model.Action{stuckAction("act-1", 0), stuckAction("act-2", 0)}, nil)

		failed1 := stuckAction("act-1", 0)
		failed1.Status = model.ActionStatusFailed
		failed1.RetryCount = 1
		failed2 := stuckAction("act-2", 0)
		failed2.Status = model.ActionStatusFailed
		failed2.RetryCount = 1
		actionRepo.On("MarkFailed", mock.Anything, "act-1", "reconciled: stuck in executing past threshold").Return(&failed1, nil)
		actionRepo.On("MarkFailed", mock.Anything, "act-2", "reconciled: stuck in executing past threshold").Return(&failed2, nil)

		job.Sweep()

		actionRepo.AssertNumberOfCalls(t, "MarkFailed", 2)
		// Retry budget remains; the reserved units stay held for a retry.
		usageRepo.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("releases the unit when the sweep exhausts the retry budget", func(t *testing.T) {
		actionRepo := new(mockActionRepo)
		bizRepo := new(mockBusinessRepo)
		usageRepo := new(mockUsageRepo)
		job := NewReconcileJob(actionRepo, bizRepo, service.NewQuotaService(usageRepo), 10*time.Minute, time.Hour)

		actionRepo.On("FindStuckExecuting", mock.Anything, mock.Anything).
			Return([]model.Action{stuckAction("act-1", 2)}, nil)

		failed := stuckAction("act-1", 2)
		failed.Status = model.ActionStatusFailed
		failed.RetryCount = 3
		actionRepo.On("MarkFailed", mock.Anything, "act-1", mock.Anything).Return(&failed, nil)
		bizRepo.On("FindByID", mock.Anything, "biz-1").Return(&model.Business{ID: "biz-1", CustomerID: "cust-1"}, nil)

		entry := &model.UsageLedgerEntry{ID: "entry-1", CustomerID: "cust-1", ActionsLimit: 100, ActionsReserved: 1}
		usageRepo.On("FindCurrent", mock.Anything, "cust-1", mock.Anything).Return(entry, nil)
		usageRepo.On("Release", mock.Anything, "entry-1", 1).Return(nil)

		job.Sweep()

		usageRepo.AssertCalled(t, "Release", mock.Anything, "entry-1", 1)
	})

	t.Run("empty sweep touches nothing", func(t *testing.T) {
		actionRepo := new(mockActionRepo)
		job := NewReconcileJob(actionRepo, new(mockBusinessRepo), service.NewQuotaService(new(mockUsageRepo)), 10*time.Minute, time.Hour)

		actionRepo.On("FindStuckExecuting", mock.Anything, mock.Anything).Return([]model.Action{}, nil)

		job.Sweep()

		actionRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	})
}
