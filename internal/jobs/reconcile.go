package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/config"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/service"
	"github.com/commentflow/outreach-server-go/internal/telemetry"
)

// ReconcileJob sweeps actions stuck in executing. Marking an action
// executing and reconciling the outcome are separate writes, so a crash
// in between strands the action; this job fails those past a threshold
// and settles their quota units.
type ReconcileJob struct {
	actionRepo   repository.ActionRepository
	businessRepo repository.BusinessRepository
	quota        *service.QuotaService
	threshold    time.Duration
	interval     time.Duration
	done         chan struct{}
}

func NewReconcileJob(
	actionRepo repository.ActionRepository,
	businessRepo repository.BusinessRepository,
	quota *service.QuotaService,
	threshold time.Duration,
	interval time.Duration,
) *ReconcileJob {
	return &ReconcileJob{
		actionRepo:   actionRepo,
		businessRepo: businessRepo,
		quota:        quota,
		threshold:    threshold,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

func (j *ReconcileJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("threshold", j.threshold).Msg("reconcile job started")
}

func (j *ReconcileJob) Stop() {
	close(j.done)
	log.Info().Msg("reconcile job stopped")
}

func (j *ReconcileJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep fails every action that has sat in executing longer than the
// threshold. Exported so the admin surface can trigger it on demand.
func (j *ReconcileJob) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stuck, err := j.actionRepo.FindStuckExecuting(ctx, time.Now().Add(-j.threshold))
	if err != nil {
		log.Error().Err(err).Msg("query stuck executing actions")
		return
	}
	if len(stuck) == 0 {
		return
	}

	log.Warn().Int("count", len(stuck)).Msg("reconciling stuck executing actions")

	for i := range stuck {
		j.reconcile(ctx, &stuck[i])
	}
}

func (j *ReconcileJob) reconcile(ctx context.Context, action *model.Action) {
	failed, err := j.actionRepo.MarkFailed(ctx, action.ID, "reconciled: stuck in executing past threshold")
	if err != nil {
		log.Error().Err(err).Str("actionId", action.ID).Msg("mark stuck action failed")
		return
	}
	telemetry.ReconciledActions.Inc()

	// A final failure hands its reserved quota unit back.
	if failed.RetryCount >= config.ActionRetryLimit {
		business, err := j.businessRepo.FindByID(ctx, failed.BusinessID)
		if err != nil || business == nil {
			log.Error().Err(err).Str("actionId", failed.ID).Msg("load business for quota release")
			return
		}
		if err := j.quota.Release(ctx, business.CustomerID, 1); err != nil {
			log.Error().Err(err).Str("customerId", business.CustomerID).Msg("release quota unit for reconciled action")
		}
	}

	log.Info().
		Str("actionId", failed.ID).
		Int("retryCount", failed.RetryCount).
		Msg("stuck action reconciled to failed")
}
