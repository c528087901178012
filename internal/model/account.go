package model

import (
	"encoding/json"
	"time"
)

// ExecutionAccount is a credentialed identity usable by a channel adapter.
// failure_count is a durable circuit breaker: three consecutive login
// failures deactivate the account until an operator re-enables it.
type ExecutionAccount struct {
	ID                 string           `db:"id" json:"id"`
	Channel            ChannelKind      `db:"channel" json:"channel"`
	Identity           string           `db:"identity" json:"identity"`
	Secret             string           `db:"secret" json:"-"`
	ProxyURL           *string          `db:"proxy_url" json:"proxyUrl,omitempty"`
	SessionData        *json.RawMessage `db:"session_data" json:"-"`
	SessionRefreshedAt *time.Time       `db:"session_refreshed_at" json:"sessionRefreshedAt,omitempty"`
	Active             bool             `db:"active" json:"active"`
	FailureCount       int              `db:"failure_count" json:"failureCount"`
	LastUsedAt         *time.Time       `db:"last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}

// HasFreshSession reports whether cached session material can be restored
// instead of performing a full login.
func (a *ExecutionAccount) HasFreshSession(maxAge time.Duration) bool {
	if a.SessionData == nil || a.SessionRefreshedAt == nil {
		return false
	}
	return time.Since(*a.SessionRefreshedAt) < maxAge
}

type CreateExecutionAccountParams struct {
	Channel  ChannelKind
	Identity string
	Secret   string
	ProxyURL *string
}
