package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
)

// migrations[i] upgrades a database at user_version i to i+1. Append only.
var migrations = []string{
	`CREATE TABLE kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE drafts (
		key         TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		scenario_id TEXT NOT NULL DEFAULT '',
		diagram_id  TEXT NOT NULL DEFAULT '',
		payload     TEXT NOT NULL,
		saved_at    INTEGER NOT NULL
	);
	CREATE TABLE llm_calls (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		at            INTEGER NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		purpose       TEXT NOT NULL,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body  TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX llm_calls_purpose ON llm_calls (purpose, id);`,
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if version > len(migrations) {
		return errors.WithHint(
			errors.Newf("database schema v%d is newer than this build (v%d)", version, len(migrations)),
			"run: threatlab update")
	}
	for v := version; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin migration")
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %d", v+1)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "record schema v%d", v+1)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit migration %d", v+1)
		}
	}
	return nil
}
