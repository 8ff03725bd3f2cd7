package db

import "embed"

// MigrationFS embeds the transfer_codes, device_identities, push_subscriptions and
// audit_logs migrations from internal/db/migrations. Used by internal/db/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
