package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/audit"
	"github.com/commentflow/outreach-server-go/internal/config"
	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
)

// ActionService is the single authority for action status changes and
// ownership checks. Every mutating call re-verifies that the action's
// business belongs to the acting identity before touching status.
type ActionService struct {
	actionRepo   repository.ActionRepository
	businessRepo repository.BusinessRepository
	quota        *QuotaService
}

func NewActionService(
	actionRepo repository.ActionRepository,
	businessRepo repository.BusinessRepository,
	quota *QuotaService,
) *ActionService {
	return &ActionService{
		actionRepo:   actionRepo,
		businessRepo: businessRepo,
		quota:        quota,
	}
}

// holdsReservation reports whether an action currently holds a quota
// reservation: approved work that has not yet permanently consumed or
// given back its unit.
func holdsReservation(a *model.Action) bool {
	switch a.Status {
	case model.ActionStatusApproved, model.ActionStatusScheduled, model.ActionStatusExecuting:
		return true
	case model.ActionStatusFailed:
		return a.RetryCount < config.ActionRetryLimit
	}
	return false
}

// authorize loads an action and verifies ownership. Existence is hidden
// from non-owners: a plain caller probing a foreign id gets NotFound, an
// elevated caller acting for the wrong customer gets Forbidden.
func (s *ActionService) authorize(ctx context.Context, identity *Identity, actionID string) (*model.Action, error) {
	action, err := s.actionRepo.FindByID(ctx, actionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if action == nil {
		return nil, apperrors.NotFound("Action")
	}

	business, err := s.businessRepo.FindByID(ctx, action.BusinessID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if business == nil {
		return nil, apperrors.NotFound("Action")
	}

	if business.CustomerID != identity.Effective.ID {
		if identity.Elevated() {
			return nil, apperrors.Forbidden("Action belongs to another customer")
		}
		return nil, apperrors.NotFound("Action")
	}

	return action, nil
}

func (s *ActionService) Get(ctx context.Context, identity *Identity, actionID string) (*model.Action, error) {
	return s.authorize(ctx, identity, actionID)
}

func (s *ActionService) List(ctx context.Context, identity *Identity, filter model.ActionFilter) ([]model.Action, int, error) {
	// Scope every listing to the acting customer's businesses.
	filter.CustomerID = &identity.Effective.ID

	if filter.BusinessID != nil {
		business, err := s.businessRepo.FindByID(ctx, *filter.BusinessID)
		if err != nil {
			return nil, 0, apperrors.Database(err)
		}
		if business == nil || business.CustomerID != identity.Effective.ID {
			return nil, 0, apperrors.NotFound("Business")
		}
	}

	actions, err := s.actionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.actionRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	return actions, total, nil
}

// Update applies editable fields (edited comment text, schedule) to an
// owned action. Status changes go through Transition.
func (s *ActionService) Update(ctx context.Context, identity *Identity, actionID string, params model.UpdateActionParams) (*model.Action, error) {
	action, err := s.authorize(ctx, identity, actionID)
	if err != nil {
		return nil, err
	}

	if action.Status == model.ActionStatusExecuting || action.Status == model.ActionStatusCompleted {
		return nil, apperrors.ValidationError(fmt.Sprintf("Cannot edit an action in status %q", action.Status))
	}

	updated, err := s.actionRepo.Update(ctx, actionID, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Action")
	}
	return updated, nil
}

func (s *ActionService) Delete(ctx context.Context, identity *Identity, actionID string) error {
	action, err := s.authorize(ctx, identity, actionID)
	if err != nil {
		return err
	}

	if action.Status == model.ActionStatusExecuting {
		return apperrors.ValidationError("Cannot delete an executing action")
	}

	if holdsReservation(action) {
		if err := s.quota.Release(ctx, identity.Effective.ID, 1); err != nil {
			return err
		}
	}

	if err := s.actionRepo.Delete(ctx, actionID); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventActionDelete,
		CustomerID: identity.Caller.ID,
		ActionID:   actionID,
	})
	return nil
}

// Transition applies a status change after validating it against the
// transition table. Nothing is mutated on a validation failure.
func (s *ActionService) Transition(ctx context.Context, identity *Identity, actionID string, to model.ActionStatus) (*model.Action, error) {
	action, err := s.authorize(ctx, identity, actionID)
	if err != nil {
		return nil, err
	}

	if !model.IsValidStatus(to) {
		return nil, apperrors.InvalidInput("status", fmt.Sprintf("unknown status %q", to))
	}
	if !model.CanTransition(action.Status, to) {
		return nil, apperrors.InvalidTransition(string(action.Status), string(to))
	}

	// Approval holds a quota unit before any state is touched, so an
	// exhausted budget leaves the action unchanged.
	if to == model.ActionStatusApproved && !holdsReservation(action) {
		if err := s.quota.Reserve(ctx, identity.Effective.ID, 1); err != nil {
			return nil, err
		}
	}

	var updated *model.Action
	if to == model.ActionStatusApproved {
		// Approval always marks the action as explicitly reviewed.
		updated, err = s.actionRepo.MarkApproved(ctx, actionID)
	} else {
		updated, err = s.actionRepo.UpdateStatus(ctx, actionID, to)
	}
	if err != nil {
		if to == model.ActionStatusApproved && !holdsReservation(action) {
			_ = s.quota.Release(ctx, identity.Effective.ID, 1)
		}
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Action")
	}

	// Leaving the approved pipeline gives the reserved unit back.
	if holdsReservation(action) && !holdsReservation(updated) && updated.Status != model.ActionStatusCompleted {
		if err := s.quota.Release(ctx, identity.Effective.ID, 1); err != nil {
			log.Error().Err(err).Str("actionId", actionID).Msg("release reservation after transition")
		}
	}

	switch to {
	case model.ActionStatusApproved:
		audit.Log(ctx, audit.Event{
			Type:       audit.EventActionApprove,
			CustomerID: identity.Caller.ID,
			ActionID:   actionID,
		})
	case model.ActionStatusSkipped:
		audit.Log(ctx, audit.Event{
			Type:       audit.EventActionSkip,
			CustomerID: identity.Caller.ID,
			ActionID:   actionID,
		})
	}

	log.Info().
		Str("actionId", actionID).
		Str("from", string(action.Status)).
		Str("to", string(to)).
		Msg("action status changed")

	return updated, nil
}

// BatchApprove approves a set of pending actions all-or-nothing: every id
// must be owned and approvable, and the customer must have headroom for
// the full batch before any status changes.
func (s *ActionService) BatchApprove(ctx context.Context, identity *Identity, actionIDs []string) ([]model.Action, error) {
	if len(actionIDs) == 0 {
		return nil, apperrors.MissingRequired("actionIds")
	}

	actions := make([]*model.Action, 0, len(actionIDs))
	for _, id := range actionIDs {
		action, err := s.authorize(ctx, identity, id)
		if err != nil {
			return nil, err
		}
		if !model.CanTransition(action.Status, model.ActionStatusApproved) {
			return nil, apperrors.InvalidTransition(string(action.Status), string(model.ActionStatusApproved))
		}
		actions = append(actions, action)
	}

	if err := s.quota.Reserve(ctx, identity.Effective.ID, len(actions)); err != nil {
		return nil, err
	}

	approved := make([]model.Action, 0, len(actions))
	for i, action := range actions {
		updated, err := s.actionRepo.MarkApproved(ctx, action.ID)
		if err != nil || updated == nil {
			// Give back units for the actions that did not flip.
			_ = s.quota.Release(ctx, identity.Effective.ID, len(actions)-i)
			if err == nil {
				err = fmt.Errorf("action %s disappeared during batch approve", action.ID)
			}
			return approved, apperrors.Database(err)
		}
		approved = append(approved, *updated)
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventActionApprove,
		CustomerID: identity.Caller.ID,
		Details:    map[string]interface{}{"batch_size": len(approved)},
	})

	log.Info().
		Str("customerId", identity.Effective.ID).
		Int("count", len(approved)).
		Msg("batch approved actions")

	return approved, nil
}
