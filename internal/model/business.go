package model

import (
	"time"
)

// Business is the ownership anchor for actions. A business belongs to
// exactly one customer.
type Business struct {
	ID          string    `db:"id" json:"id"`
	CustomerID  string    `db:"customer_id" json:"customerId"`
	Name        string    `db:"name" json:"name"`
	AutoApprove bool      `db:"auto_approve" json:"autoApprove"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
