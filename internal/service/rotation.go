package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/audit"
	"github.com/commentflow/outreach-server-go/internal/channel"
	"github.com/commentflow/outreach-server-go/internal/config"
	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/telemetry"
)

// RotationResult reports the outcome of one rotation run.
type RotationResult struct {
	Success       bool
	AccountID     string
	AccountsTried int
	Elapsed       time.Duration
	ExternalRef   string
}

// RotationManager posts through the credential pool for a channel: it
// walks active accounts oldest-used first, failing over on login errors,
// inside the channel's wall-clock budget. Accounts are leased exclusively
// for the duration of an attempt, and every channel call runs under a
// deadline derived from the remaining budget.
type RotationManager struct {
	accountRepo repository.ExecutionAccountRepository
	locker      AccountLocker
	leaseTTL    time.Duration

	// now is swappable for tests
	now func() time.Time
}

func NewRotationManager(
	accountRepo repository.ExecutionAccountRepository,
	locker AccountLocker,
	leaseTTL time.Duration,
) *RotationManager {
	return &RotationManager{
		accountRepo: accountRepo,
		locker:      locker,
		leaseTTL:    leaseTTL,
		now:         time.Now,
	}
}

// Execute drives ch through the pool until a post lands, the pool is
// exhausted, or the budget runs out. A post rejection after a successful
// login returns immediately: the target refused the content, and another
// account is unlikely to change that.
func (m *RotationManager) Execute(ctx context.Context, ch channel.Channel, targetURL, text string) (*RotationResult, error) {
	start := m.now()
	budget := ch.Budget()
	result := &RotationResult{}

	accounts, err := m.accountRepo.FindActiveByChannel(ctx, ch.Kind())
	if err != nil {
		return result, apperrors.Database(err)
	}
	if len(accounts) == 0 {
		return result, apperrors.Unavailable(fmt.Sprintf("No active accounts for channel %q", ch.Kind()))
	}

	for i := range accounts {
		account := &accounts[i]

		elapsed := m.now().Sub(start)
		if elapsed >= budget {
			result.Elapsed = elapsed
			telemetry.RotationTimeouts.Inc()
			log.Warn().
				Str("channel", string(ch.Kind())).
				Dur("elapsed", elapsed).
				Int("accountsTried", result.AccountsTried).
				Msg("rotation budget exhausted")
			return result, apperrors.Timeout(fmt.Sprintf(
				"Execution budget exceeded after %d of %d accounts", result.AccountsTried, len(accounts)))
		}

		lease, err := m.locker.Obtain(ctx, account.ID, m.leaseTTL)
		if errors.Is(err, ErrLeaseHeld) {
			log.Debug().Str("accountId", account.ID).Msg("account leased elsewhere, skipping")
			continue
		}
		if err != nil {
			return result, apperrors.Internal("Account lease backend failed").WithCause(err)
		}

		result.AccountsTried++
		telemetry.RotationAttempts.Inc()

		ref, loginErr, postErr := m.attempt(ctx, ch, account, targetURL, text, budget-elapsed, lease)

		if loginErr != nil {
			m.recordLoginFailure(ctx, account, loginErr)
			continue
		}

		result.Elapsed = m.now().Sub(start)
		result.AccountID = account.ID

		if postErr != nil {
			// Content-level rejection: the credential is fine, so only
			// last_used moves and no other account is tried.
			if err := m.accountRepo.TouchLastUsed(ctx, account.ID); err != nil {
				log.Error().Err(err).Str("accountId", account.ID).Msg("touch last_used after post rejection")
			}
			return result, apperrors.External("channel post", postErr)
		}

		if err := m.accountRepo.ResetFailures(ctx, account.ID); err != nil {
			log.Error().Err(err).Str("accountId", account.ID).Msg("reset failure count after success")
		}

		result.Success = true
		result.ExternalRef = ref
		log.Info().
			Str("channel", string(ch.Kind())).
			Str("accountId", account.ID).
			Int("accountsTried", result.AccountsTried).
			Dur("elapsed", result.Elapsed).
			Msg("post succeeded")
		return result, nil
	}

	result.Elapsed = m.now().Sub(start)
	return result, apperrors.Unavailable(fmt.Sprintf("All %d accounts failed for channel %q", result.AccountsTried, ch.Kind()))
}

// attempt performs one login+post cycle on a leased account. The lease
// and any channel session are released on every exit path, and both
// channel calls share a deadline cut from the remaining budget.
func (m *RotationManager) attempt(
	ctx context.Context,
	ch channel.Channel,
	account *model.ExecutionAccount,
	targetURL, text string,
	remaining time.Duration,
	lease Lease,
) (ref string, loginErr, postErr error) {
	defer func() {
		if err := lease.Release(ctx); err != nil {
			log.Error().Err(err).Str("accountId", account.ID).Msg("release account lease")
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	session, err := ch.Login(callCtx, account)
	if err != nil {
		return "", err, nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Error().Err(err).Str("accountId", account.ID).Msg("close channel session")
		}
	}()

	if material := session.Material(); material != nil {
		if err := m.accountRepo.SaveSession(ctx, account.ID, material); err != nil {
			log.Error().Err(err).Str("accountId", account.ID).Msg("persist refreshed session")
		}
	}

	result, err := ch.Post(callCtx, session, targetURL, text)
	if err != nil {
		return "", nil, err
	}
	return result.ExternalRef, nil, nil
}

func (m *RotationManager) recordLoginFailure(ctx context.Context, account *model.ExecutionAccount, cause error) {
	log.Warn().
		Err(cause).
		Str("accountId", account.ID).
		Int("failureCount", account.FailureCount+1).
		Msg("account login failed, rotating to next")

	updated, err := m.accountRepo.RecordLoginFailure(ctx, account.ID, config.AccountFailureThreshold)
	if err != nil {
		log.Error().Err(err).Str("accountId", account.ID).Msg("persist login failure")
		return
	}
	if updated != nil && !updated.Active {
		telemetry.AccountsDisabled.Inc()
		audit.Log(ctx, audit.Event{
			Type:      audit.EventAccountBreaker,
			AccountID: account.ID,
			Details:   map[string]interface{}{"failure_count": updated.FailureCount},
		})
	}
}
