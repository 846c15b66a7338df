package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taxpilot/dashboard-notifications/internal/config"
)

const (
	DOCUMENTS_TABLE = "realtime_documents"
	CHANGES_CHANNEL = "realtime_changes"
)

const schema = `
CREATE TABLE IF NOT EXISTS realtime_documents (
	path       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (path, id)
)`

func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, cfg.DSN())
}

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
