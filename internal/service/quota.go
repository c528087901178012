package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/telemetry"
)

// QuotaService bounds successful postings per customer per billing period.
// Units are reserved at approval, released on terminal failure or skip,
// and consumed permanently on completion. Check-then-mutate is not atomic;
// concurrent callers can overrun by at most the number of in-flight
// requests, which is acceptable slack for this domain.
type QuotaService struct {
	usageRepo repository.UsageLedgerRepository
}

func NewQuotaService(usageRepo repository.UsageLedgerRepository) *QuotaService {
	return &QuotaService{usageRepo: usageRepo}
}

// CheckHeadroom returns the remaining budget for the current period, or a
// ResourceExhausted error when count exceeds it.
func (s *QuotaService) CheckHeadroom(ctx context.Context, customerID string, count int) (int, error) {
	entry, err := s.currentEntry(ctx, customerID)
	if err != nil {
		return 0, err
	}

	remaining := entry.Remaining()
	if count > remaining {
		telemetry.QuotaRejections.Inc()
		return remaining, apperrors.QuotaExceeded(count, remaining)
	}
	return remaining, nil
}

// Reserve checks headroom and holds count units against the current period.
func (s *QuotaService) Reserve(ctx context.Context, customerID string, count int) error {
	entry, err := s.currentEntry(ctx, customerID)
	if err != nil {
		return err
	}

	remaining := entry.Remaining()
	if count > remaining {
		telemetry.QuotaRejections.Inc()
		return apperrors.QuotaExceeded(count, remaining)
	}

	if err := s.usageRepo.Reserve(ctx, entry.ID, count); err != nil {
		return apperrors.Database(err)
	}

	log.Debug().
		Str("customerId", customerID).
		Int("count", count).
		Int("remaining", remaining-count).
		Msg("quota reserved")
	return nil
}

// Release returns count reserved units without consuming them.
func (s *QuotaService) Release(ctx context.Context, customerID string, count int) error {
	entry, err := s.usageRepo.FindCurrent(ctx, customerID, time.Now())
	if err != nil {
		return apperrors.Database(err)
	}
	if entry == nil {
		// Period may have rolled over since the reservation; nothing to return.
		log.Warn().Str("customerId", customerID).Msg("quota release with no active period")
		return nil
	}

	if err := s.usageRepo.Release(ctx, entry.ID, count); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// Consume moves one reserved unit to used after a successful execution.
func (s *QuotaService) Consume(ctx context.Context, customerID string) error {
	entry, err := s.usageRepo.FindCurrent(ctx, customerID, time.Now())
	if err != nil {
		return apperrors.Database(err)
	}
	if entry == nil {
		log.Warn().Str("customerId", customerID).Msg("quota consume with no active period")
		return nil
	}

	if err := s.usageRepo.Consume(ctx, entry.ID); err != nil {
		return apperrors.Database(err)
	}

	log.Debug().
		Str("customerId", customerID).
		Int("used", entry.ActionsUsed+1).
		Int("limit", entry.ActionsLimit).
		Msg("quota consumed")
	return nil
}

// Current returns the ledger entry covering now, if any.
func (s *QuotaService) Current(ctx context.Context, customerID string) (*model.UsageLedgerEntry, error) {
	entry, err := s.usageRepo.FindCurrent(ctx, customerID, time.Now())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return entry, nil
}

func (s *QuotaService) currentEntry(ctx context.Context, customerID string) (*model.UsageLedgerEntry, error) {
	entry, err := s.usageRepo.FindCurrent(ctx, customerID, time.Now())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if entry == nil {
		telemetry.QuotaRejections.Inc()
		return nil, apperrors.ResourceExhausted("No active billing period")
	}
	return entry, nil
}
