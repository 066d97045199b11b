package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ChangeChannel is the NOTIFY channel carrying the name of a changed collection.
const ChangeChannel = "collection_changes"

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  collection TEXT        NOT NULL,
  data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_collection_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_collection_created_at ON documents (collection, created_at);`,
	},
	{
		Name: "create_index_documents_data",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);`,
	},
	{
		Name: "create_index_librarians_slug",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_librarian_slug ON documents ((data->>'slug')) WHERE collection = 'librarians';`,
	},
	{
		Name: "create_table_collection_counters",
		SQL: `CREATE TABLE IF NOT EXISTS collection_counters (
  collection TEXT   NOT NULL,
  field      TEXT   NOT NULL,
  value      BIGINT NOT NULL,
  PRIMARY KEY (collection, field)
);`,
	},
	{
		Name: "create_function_notify_collection_change",
		SQL: `CREATE OR REPLACE FUNCTION notify_collection_change() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify('` + ChangeChannel + `', COALESCE(NEW.collection, OLD.collection));
  RETURN NULL;
END;
$$ LANGUAGE plpgsql;`,
	},
	{
		Name: "create_trigger_documents_notify",
		SQL: `DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
AFTER INSERT OR UPDATE OR DELETE ON documents
FOR EACH ROW EXECUTE FUNCTION notify_collection_change();`,
	},
}

// EnsureMigrated checks for the sentinel tables and runs every step when the
// schema is missing. Steps are idempotent.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	start := time.Now()
	log := logger.With().Str("component", "database").Logger()

	log.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	const query = "SELECT to_regclass('public.documents') IS NOT NULL AND to_regclass('public.collection_counters') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel tables")
		return fmt.Errorf("failed to check sentinel tables: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Int("steps", len(steps)).Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema migrated")

	return nil
}
