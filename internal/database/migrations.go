package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		elevated BOOLEAN NOT NULL DEFAULT FALSE,
		api_token_hash TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		disabled_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS businesses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		auto_approve BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS content_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		platform TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		snippet TEXT,
		relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS actions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		platform TEXT NOT NULL,
		target_url TEXT NOT NULL,
		target_title TEXT,
		target_snippet TEXT,
		comment_text TEXT NOT NULL,
		edited_comment_text TEXT,
		relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending_review',
		auto_approved BOOLEAN NOT NULL DEFAULT FALSE,
		scheduled_for TIMESTAMPTZ,
		executed_at TIMESTAMPTZ,
		external_ref TEXT,
		error_message TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		content_item_id UUID REFERENCES content_items(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_actions_business_status ON actions(business_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_actions_status_updated ON actions(status, updated_at)`,

	`CREATE TABLE IF NOT EXISTS usage_ledger (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		actions_limit INTEGER NOT NULL DEFAULT 0,
		actions_used INTEGER NOT NULL DEFAULT 0,
		actions_reserved INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (customer_id, period_start)
	)`,

	`CREATE TABLE IF NOT EXISTS execution_accounts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		channel TEXT NOT NULL,
		identity TEXT NOT NULL,
		secret TEXT NOT NULL,
		proxy_url TEXT,
		session_data JSONB,
		session_refreshed_at TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		failure_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_execution_accounts_channel_active ON execution_accounts(channel, active)`,

	`CREATE TABLE IF NOT EXISTS provider_mappings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		platform TEXT NOT NULL,
		action_type TEXT NOT NULL,
		channel TEXT NOT NULL,
		endpoint TEXT,
		api_key TEXT,
		cost_per_action DOUBLE PRECISION NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (platform, action_type)
	)`,
}

// Migrate applies the schema. Statements are idempotent so this is safe
// to run on every boot.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
