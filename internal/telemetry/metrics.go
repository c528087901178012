package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ExecutionsTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_executions_total", Help: "Actions executed successfully"})
	ExecutionFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_execution_failures_total", Help: "Action executions that failed"})
	RotationAttempts   = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_rotation_attempts_total", Help: "Account attempts made by the rotation manager"})
	RotationTimeouts   = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_rotation_timeouts_total", Help: "Rotation runs that exhausted their time budget"})
	QuotaRejections    = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_quota_rejections_total", Help: "Requests rejected for lack of quota headroom"})
	AccountsDisabled   = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_accounts_disabled_total", Help: "Execution accounts disabled by the circuit breaker"})
	ReconciledActions  = prometheus.NewCounter(prometheus.CounterOpts{Name: "outreach_reconciled_actions_total", Help: "Stuck executing actions failed by the reconcile sweep"})
	ExecutionsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{Name: "outreach_executions_inflight", Help: "Executions currently running"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			ExecutionsTotal,
			ExecutionFailures,
			RotationAttempts,
			RotationTimeouts,
			QuotaRejections,
			AccountsDisabled,
			ReconciledActions,
			ExecutionsInFlight,
		)
	})
	return promhttp.Handler()
}
