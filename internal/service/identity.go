package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/audit"
	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
)

// Identity is the resolved acting identity for a request. Caller is the
// authenticated customer; Effective is the customer whose resources are
// acted on (differs from Caller only under impersonation).
type Identity struct {
	Caller    *model.Customer
	Effective *model.Customer
}

// Elevated reports whether the authenticated caller has elevated rights.
func (i *Identity) Elevated() bool {
	return i.Caller != nil && i.Caller.Elevated
}

type IdentityService struct {
	customerRepo repository.CustomerRepository
}

func NewIdentityService(customerRepo repository.CustomerRepository) *IdentityService {
	return &IdentityService{customerRepo: customerRepo}
}

// Resolve maps an authenticated customer plus an optional act-as target to
// the effective acting identity. An elevated caller may act for a
// non-elevated customer; impersonating another elevated customer is never
// allowed.
func (s *IdentityService) Resolve(ctx context.Context, caller *model.Customer, actAsID string) (*Identity, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Missing authentication")
	}

	if actAsID == "" || actAsID == caller.ID {
		return &Identity{Caller: caller, Effective: caller}, nil
	}

	if !caller.Elevated {
		audit.Log(ctx, audit.Event{
			Type:       audit.EventImpersonationBad,
			CustomerID: caller.ID,
			Details:    map[string]interface{}{"target": actAsID},
		})
		return nil, apperrors.Forbidden("Not allowed to act on behalf of another customer")
	}

	target, err := s.customerRepo.FindByID(ctx, actAsID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if target == nil {
		return nil, apperrors.NotFound("Customer")
	}
	if target.Elevated {
		audit.Log(ctx, audit.Event{
			Type:       audit.EventImpersonationBad,
			CustomerID: caller.ID,
			Details:    map[string]interface{}{"target": actAsID, "reason": "target is elevated"},
		})
		return nil, apperrors.Forbidden("Cannot act on behalf of an elevated customer")
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventImpersonation,
		CustomerID: caller.ID,
		Details:    map[string]interface{}{"target": actAsID},
	})
	log.Debug().Str("callerId", caller.ID).Str("targetId", actAsID).Msg("impersonation resolved")

	return &Identity{Caller: caller, Effective: target}, nil
}
