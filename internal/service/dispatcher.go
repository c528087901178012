package service

import (
	"context"
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

// rotator abstracts the rotation manager for tests.
type rotator interface {
	Execute(ctx context.Context, ch channel.Channel, targetURL, text string) (*RotationResult, error)
}

// ExecuteResult is what a completed execution reports back to the
// caller. Failed runs come back as an error whose details carry the
// retry count and any replacement candidate.
type ExecuteResult struct {
	Action   *model.Action   `json:"action"`
	Rotation *RotationResult `json:"rotation,omitempty"`
}

// ExecutionService orchestrates one action's execution end to end:
// precondition checks, quota, channel resolution, the rotation run, and
// reconciling the action and ledger with the outcome.
type ExecutionService struct {
	actions      *ActionService
	actionRepo   repository.ActionRepository
	businessRepo repository.BusinessRepository
	providers    repository.ProviderDirectory
	quota        *QuotaService
	rotation     rotator
	selector     *ReplacementSelector
	channels     map[model.ChannelKind]channel.Channel
}

func NewExecutionService(
	actions *ActionService,
	actionRepo repository.ActionRepository,
	businessRepo repository.BusinessRepository,
	providers repository.ProviderDirectory,
	quota *QuotaService,
	rotation rotator,
	selector *ReplacementSelector,
	channels map[model.ChannelKind]channel.Channel,
) *ExecutionService {
	return &ExecutionService{
		actions:      actions,
		actionRepo:   actionRepo,
		businessRepo: businessRepo,
		providers:    providers,
		quota:        quota,
		rotation:     rotation,
		selector:     selector,
		channels:     channels,
	}
}

// Execute runs a single action through its channel. Without force the
// action must be approved or scheduled; force overrides the status
// precondition for anything except completed, which is final.
func (s *ExecutionService) Execute(ctx context.Context, identity *Identity, actionID string, force bool) (*ExecuteResult, error) {
	action, err := s.actions.authorize(ctx, identity, actionID)
	if err != nil {
		return nil, err
	}

	if err := checkExecutable(action, force); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.FindByID(ctx, action.BusinessID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if business == nil {
		return nil, apperrors.NotFound("Business")
	}

	// Approved work already holds a reserved quota unit; anything else
	// reaching here via force has to claim one now so completion can
	// consume it.
	reservedHere := false
	if !holdsReservation(action) {
		if err := s.quota.Reserve(ctx, business.CustomerID, 1); err != nil {
			return nil, err
		}
		reservedHere = true
	}

	mapping, err := s.providers.ResolveActive(ctx, action.Platform, model.ActionTypeComment)
	if err != nil {
		s.rollbackReservation(ctx, business.CustomerID, reservedHere)
		return nil, apperrors.Database(err)
	}
	if mapping == nil {
		s.rollbackReservation(ctx, business.CustomerID, reservedHere)
		return nil, apperrors.Unavailable(fmt.Sprintf("No active channel for platform %q", action.Platform))
	}
	ch, ok := s.channels[mapping.Channel]
	if !ok {
		s.rollbackReservation(ctx, business.CustomerID, reservedHere)
		return nil, apperrors.Unavailable(fmt.Sprintf("Channel %q is not configured", mapping.Channel))
	}

	// The text to post comes from the authorized snapshot, before the
	// status flip rewrites our view of the row.
	targetURL := action.TargetURL
	postText := action.PostText()

	action, err = s.actionRepo.UpdateStatus(ctx, action.ID, model.ActionStatusExecuting)
	if err != nil {
		s.rollbackReservation(ctx, business.CustomerID, reservedHere)
		return nil, err
	}

	telemetry.ExecutionsInFlight.Inc()
	defer telemetry.ExecutionsInFlight.Dec()

	audit.Log(ctx, audit.Event{
		Type:       audit.EventActionExecute,
		CustomerID: identity.Effective.ID,
		ActionID:   action.ID,
		Details:    map[string]interface{}{"platform": action.Platform, "channel": string(mapping.Channel), "force": force},
	})

	rotation, rotErr := s.rotation.Execute(ctx, ch, targetURL, postText)

	if rotErr != nil {
		return s.recordFailure(ctx, business.CustomerID, action, rotation, rotErr)
	}
	return s.recordSuccess(ctx, business.CustomerID, action, rotation)
}

// checkExecutable enforces the status precondition. Completed is final
// even under force.
func checkExecutable(action *model.Action, force bool) error {
	if action.Status == model.ActionStatusCompleted {
		return apperrors.ValidationError(fmt.Sprintf("Action %s is already completed", action.ID))
	}
	if force {
		return nil
	}
	if action.Status != model.ActionStatusApproved && action.Status != model.ActionStatusScheduled {
		return apperrors.ValidationError(fmt.Sprintf("Action %s is %s; only approved or scheduled actions can execute", action.ID, action.Status))
	}
	return nil
}

func (s *ExecutionService) recordSuccess(ctx context.Context, customerID string, action *model.Action, rotation *RotationResult) (*ExecuteResult, error) {
	completed, err := s.actionRepo.MarkCompleted(ctx, action.ID, rotation.ExternalRef, time.Now())
	if err != nil {
		// The post landed but we could not persist it; surface loudly so
		// the reconcile sweep does not re-run it blind.
		log.Error().Err(err).Str("actionId", action.ID).Str("externalRef", rotation.ExternalRef).
			Msg("post succeeded but completion could not be persisted")
		return nil, apperrors.Database(err)
	}

	telemetry.ExecutionsTotal.Inc()

	if err := s.quota.Consume(ctx, customerID); err != nil {
		log.Error().Err(err).Str("customerId", customerID).Str("actionId", action.ID).
			Msg("consume quota unit after completion")
	}

	s.selector.MarkConsumed(ctx, completed)

	log.Info().
		Str("actionId", action.ID).
		Str("accountId", rotation.AccountID).
		Dur("elapsed", rotation.Elapsed).
		Msg("action executed")

	return &ExecuteResult{Action: completed, Rotation: rotation}, nil
}

func (s *ExecutionService) recordFailure(ctx context.Context, customerID string, action *model.Action, rotation *RotationResult, cause error) (*ExecuteResult, error) {
	telemetry.ExecutionFailures.Inc()

	failed, err := s.actionRepo.MarkFailed(ctx, action.ID, cause.Error())
	if err != nil {
		log.Error().Err(err).Str("actionId", action.ID).Msg("persist execution failure")
		return nil, apperrors.Database(err)
	}

	details := map[string]interface{}{
		"actionId":      failed.ID,
		"retryCount":    failed.RetryCount,
		"accountsTried": rotation.AccountsTried,
	}

	if failed.RetryCount >= config.ActionRetryLimit {
		// Retry budget gone; the reserved unit goes back to the ledger.
		if err := s.quota.Release(ctx, customerID, 1); err != nil {
			log.Error().Err(err).Str("customerId", customerID).Msg("release quota unit after final failure")
		}
	} else {
		replacement, selErr := s.selector.Propose(ctx, failed)
		if selErr != nil {
			log.Error().Err(selErr).Str("actionId", failed.ID).Msg("propose replacement candidate")
		} else if replacement != nil {
			details["replacementCandidateId"] = replacement.ID
		}
	}

	log.Warn().
		Err(cause).
		Str("actionId", failed.ID).
		Int("retryCount", failed.RetryCount).
		Msg("action execution failed")

	if appErr, ok := cause.(*apperrors.AppError); ok {
		return nil, appErr.WithDetails(details)
	}
	return nil, apperrors.Internal("Execution failed").WithCause(cause).WithDetails(details)
}

func (s *ExecutionService) rollbackReservation(ctx context.Context, customerID string, reservedHere bool) {
	if !reservedHere {
		return
	}
	if err := s.quota.Release(ctx, customerID, 1); err != nil {
		log.Error().Err(err).Str("customerId", customerID).Msg("roll back quota reservation")
	}
}
