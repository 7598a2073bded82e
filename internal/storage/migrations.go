package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS shifts (
					id TEXT PRIMARY KEY,
					start_time DATETIME NOT NULL,
					end_time DATETIME,
					status TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_shifts_status ON shifts(status)`,
				`CREATE INDEX idx_shifts_start_time ON shifts(start_time)`,

				`CREATE TABLE IF NOT EXISTS studies (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					shift_id TEXT NOT NULL,
					accession_number TEXT NOT NULL,
					procedure_text TEXT NOT NULL,
					study_type TEXT NOT NULL,
					rvu REAL NOT NULL,
					start_time DATETIME NOT NULL,
					end_time DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (shift_id) REFERENCES shifts(id)
				)`,
				`CREATE INDEX idx_studies_shift ON studies(shift_id)`,
				`CREATE INDEX idx_studies_accession ON studies(shift_id, accession_number)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add modality and body part columns for reporting",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE studies ADD COLUMN modality TEXT DEFAULT ''`,
				`ALTER TABLE studies ADD COLUMN body_part TEXT DEFAULT ''`,
				`CREATE INDEX idx_studies_type ON studies(study_type)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// runMigrations applies every pending migration inside its own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than expected %d",
			version, ExpectedSchemaVersion)
	}

	for _, migration := range migrations {
		if migration.Version <= version {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// PRAGMA does not support placeholders.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
