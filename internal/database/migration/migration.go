package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docvault/internal/logging"
)

// sentinelRelation is created by the last step, so it exists only once every step has run.
const sentinelRelation = "idx_documents_uploaded_at"

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           TEXT        PRIMARY KEY,
  display_name TEXT        NOT NULL,
  extension    TEXT        NOT NULL,
  uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_downloads",
		SQL: `CREATE TABLE IF NOT EXISTS document_downloads (
  document_id    TEXT   PRIMARY KEY,
  download_count BIGINT NOT NULL DEFAULT 0 CHECK (download_count >= 0)
);`,
	},
	{
		Name: "create_table_document_tokens",
		SQL: `CREATE TABLE IF NOT EXISTS document_tokens (
  token       TEXT        PRIMARY KEY,
  document_id TEXT        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_document_tokens_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_tokens_document_id ON document_tokens (document_id);`,
	},
	{
		Name: "create_index_documents_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS ` + sentinelRelation + ` ON documents (uploaded_at);`,
	},
}

// EnsureMigrated checks if the sentinel relation exists and runs every step if it doesn't.
// Steps are idempotent, so a run interrupted before the last step is completed on the next one.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logging.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.Info(ctx, "db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public." + sentinelRelation + "') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error(ctx, "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel relation: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel relation: %w", err)
	}

	if exists {
		log.Info(ctx, "db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info(ctx, "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error(ctx, "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info(ctx, "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info(ctx, "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
