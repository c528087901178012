package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/commentflow/outreach-server-go/internal/model"
)

// ProviderDirectory resolves platforms to posting channels. The mapping
// table is owned by an external provider directory; this side only reads.
type ProviderDirectory interface {
	ResolveActive(ctx context.Context, platform string, actionType model.ActionType) (*model.ProviderMapping, error)
}

type providerDirectory struct {
	db sqlxDB
}

func NewProviderDirectory(db *sqlx.DB) ProviderDirectory {
	return &providerDirectory{db: db}
}

func (r *providerDirectory) ResolveActive(ctx context.Context, platform string, actionType model.ActionType) (*model.ProviderMapping, error) {
	var mapping model.ProviderMapping
	err := r.db.GetContext(ctx, &mapping, `
		SELECT * FROM provider_mappings
		WHERE platform = $1 AND action_type = $2 AND active = TRUE
	`, platform, actionType)
	return HandleNotFound(&mapping, err)
}
