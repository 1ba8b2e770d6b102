package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; the database records how many have run
// in PRAGMA user_version. Append new steps, never edit applied ones.
var migrations = [][]string{
	// 1: transcripts, predictions, plugin bindings and settings.
	{
		`CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			modality TEXT NOT NULL CHECK(modality IN ('asl', 'speech', 'lip')),
			text TEXT NOT NULL DEFAULT '',
			last_letter TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transcript_id TEXT REFERENCES transcripts(id) ON DELETE CASCADE,
			letter TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			source TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			trigger_key TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_transcript_id ON predictions(transcript_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_trigger ON actions(trigger_key)`,
	},
	// 2: labelled landmark samples for measuring the rule table.
	{
		`CREATE TABLE IF NOT EXISTS samples (
			id TEXT PRIMARY KEY,
			letter TEXT NOT NULL,
			points TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_letter ON samples(letter)`,
	},
	// 3: one binding per trigger, plugin and action.
	{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_actions_binding ON actions(trigger_key, plugin_name, action_name)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

// migrate applies every step past the recorded version, each in its own
// transaction.
func (s *Store) migrate(ctx context.Context) error {
	version, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema %d is newer than supported %d", version, SchemaVersion)
	}

	for v := version; v < SchemaVersion; v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", v+1, err)
			}
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

// Version returns the schema version recorded in the database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
