package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/audit"
	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
)

// AccountService is the operator surface over the credential pool.
type AccountService struct {
	accountRepo repository.ExecutionAccountRepository
	actionRepo  repository.ActionRepository
}

func NewAccountService(accountRepo repository.ExecutionAccountRepository, actionRepo repository.ActionRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo, actionRepo: actionRepo}
}

func (s *AccountService) List(ctx context.Context, limit, offset int) ([]model.ExecutionAccount, error) {
	accounts, err := s.accountRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return accounts, nil
}

func (s *AccountService) Create(ctx context.Context, params model.CreateExecutionAccountParams) (*model.ExecutionAccount, error) {
	if params.Identity == "" {
		return nil, apperrors.MissingRequired("identity")
	}
	if params.Secret == "" {
		return nil, apperrors.MissingRequired("secret")
	}
	if !model.IsValidChannel(params.Channel) {
		return nil, apperrors.InvalidInput("channel", "unknown channel")
	}

	account, err := s.accountRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventAccountCreate,
		AccountID: account.ID,
		Details:   map[string]interface{}{"channel": string(account.Channel)},
	})
	return account, nil
}

// SetActive enables or disables an account. Re-enabling clears the
// circuit breaker so the account starts with a clean failure count.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) (*model.ExecutionAccount, error) {
	account, err := s.accountRepo.SetActive(ctx, id, active)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}

	eventType := audit.EventAccountDisable
	if active {
		eventType = audit.EventAccountEnable
	}
	audit.Log(ctx, audit.Event{Type: eventType, AccountID: id})
	log.Info().Str("accountId", id).Bool("active", active).Msg("account active flag changed")

	return account, nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.accountRepo.Delete(ctx, id); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// StuckActions lists actions sitting in executing past the threshold,
// for operators inspecting what the reconcile sweep will pick up.
func (s *AccountService) StuckActions(ctx context.Context, threshold time.Duration) ([]model.Action, error) {
	stuck, err := s.actionRepo.FindStuckExecuting(ctx, time.Now().Add(-threshold))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return stuck, nil
}
