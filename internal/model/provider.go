package model

import (
	"time"
)

// ProviderMapping resolves (platform, action type) to a posting channel.
// Owned by the external provider directory; read-only here.
type ProviderMapping struct {
	ID            string      `db:"id" json:"id"`
	Platform      string      `db:"platform" json:"platform"`
	ActionType    ActionType  `db:"action_type" json:"actionType"`
	Channel       ChannelKind `db:"channel" json:"channel"`
	Endpoint      *string     `db:"endpoint" json:"endpoint,omitempty"`
	APIKey        *string     `db:"api_key" json:"-"`
	CostPerAction float64     `db:"cost_per_action" json:"costPerAction"`
	Active        bool        `db:"active" json:"active"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}
