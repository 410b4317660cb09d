package repository

import (
	"context"
	"fmt"
)

// Statements are portable between postgres and sqlite. Timestamps are unix
// milliseconds so both backends store the same values.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id           TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		file_name    TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		file_size    BIGINT NOT NULL,
		status       TEXT NOT NULL,
		tax_year     INTEGER,
		created_at   BIGINT NOT NULL,
		updated_at   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extractions (
		id             TEXT PRIMARY KEY,
		document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		parser_version TEXT NOT NULL,
		stage          TEXT NOT NULL,
		method         TEXT NOT NULL,
		payload        TEXT NOT NULL,
		warnings       TEXT NOT NULL,
		created_at     BIGINT NOT NULL,
		UNIQUE (document_id, parser_version, stage)
	)`,
	`CREATE TABLE IF NOT EXISTS parsing_failures (
		id             TEXT PRIMARY KEY,
		document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		parser_version TEXT NOT NULL,
		stage          TEXT NOT NULL,
		code           TEXT NOT NULL,
		message        TEXT NOT NULL,
		created_at     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_parsing_failures_document ON parsing_failures (document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions (document_id, created_at)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
