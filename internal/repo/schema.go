package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — DDL истории запусков. Идемпотентна.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          uuid PRIMARY KEY,
    status      text        NOT NULL,
    workflow    jsonb       NOT NULL,
    exec_order  jsonb,
    outputs     jsonb,
    warnings    jsonb,
    error       text,
    error_kind  text,
    started_at  timestamptz,
    finished_at timestamptz,
    created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS runs_status_created_at_idx ON runs (status, created_at);
CREATE INDEX IF NOT EXISTS runs_finished_at_idx ON runs (finished_at) WHERE finished_at IS NOT NULL;
`

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
