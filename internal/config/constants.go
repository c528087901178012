package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 90 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const ReconcileJobInterval = 5 * time.Minute

// Account circuit breaker: consecutive login failures before an account
// is taken out of rotation. Reactivation is manual only.
const AccountFailureThreshold = 3

// Maximum execution attempts for a single action before it is terminal.
const ActionRetryLimit = 3

// Default rate limiting
const DefaultRateLimitPerMin = 60
