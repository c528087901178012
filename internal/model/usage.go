package model

import (
	"time"
)

// UsageLedgerEntry is the per-customer, per-billing-period action budget.
// Rows are created and reset by the billing collaborator; this service
// only reserves, releases, and consumes units.
type UsageLedgerEntry struct {
	ID              string    `db:"id" json:"id"`
	CustomerID      string    `db:"customer_id" json:"customerId"`
	PeriodStart     time.Time `db:"period_start" json:"periodStart"`
	PeriodEnd       time.Time `db:"period_end" json:"periodEnd"`
	ActionsLimit    int       `db:"actions_limit" json:"actionsLimit"`
	ActionsUsed     int       `db:"actions_used" json:"actionsUsed"`
	ActionsReserved int       `db:"actions_reserved" json:"actionsReserved"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Remaining is the headroom left after counting both consumed and
// reserved-but-unexecuted units.
func (e *UsageLedgerEntry) Remaining() int {
	remaining := e.ActionsLimit - e.ActionsUsed - e.ActionsReserved
	if remaining < 0 {
		return 0
	}
	return remaining
}
