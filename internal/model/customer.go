package model

import (
	"time"
)

// Customer is the acting identity resolved from an API token. Elevated
// customers may impersonate non-elevated customers.
type Customer struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Elevated     bool       `db:"elevated" json:"elevated"`
	APITokenHash *string    `db:"api_token_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	DisabledAt   *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}
