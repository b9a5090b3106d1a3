package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

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
				`CREATE TABLE IF NOT EXISTS subcategories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					scope TEXT NOT NULL CHECK (scope IN ('platform', 'household', 'user')),
					household_id TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL DEFAULT '',
					category_name TEXT NOT NULL DEFAULT '',
					name TEXT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (scope, household_id, user_id, name)
				)`,
				`CREATE INDEX idx_subcategories_household ON subcategories(household_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					account_id TEXT NOT NULL DEFAULT '',
					owner_user_id TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					amount TEXT NOT NULL,
					date DATETIME NOT NULL,
					review_status TEXT NOT NULL DEFAULT 'None',
					review_reason TEXT NOT NULL DEFAULT '',
					review_assignee TEXT NOT NULL DEFAULT '',
					subcategory_id INTEGER REFERENCES subcategories(id),
					version INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_household ON transactions(household_id)`,
				`CREATE INDEX idx_transactions_review_status ON transactions(review_status)`,
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
		Description: "Add transaction embeddings",
		Up: func(tx *sql.Tx) error {
			// Vectors are stored in pgvector text form, e.g. [0.1,0.2].
			if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS transaction_embeddings (
				transaction_id TEXT PRIMARY KEY REFERENCES transactions(id) ON DELETE CASCADE,
				embedding TEXT NOT NULL,
				dimensions INTEGER NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`); err != nil {
				return fmt.Errorf("failed to create transaction_embeddings table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add classification audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classification_outcomes (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					proposed_subcategory_id INTEGER,
					final_confidence REAL NOT NULL,
					decision TEXT NOT NULL,
					review_status TEXT NOT NULL,
					reason_code TEXT NOT NULL,
					rationale TEXT NOT NULL,
					agent_note TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_outcomes_transaction ON classification_outcomes(transaction_id, created_at)`,

				`CREATE TABLE IF NOT EXISTS classification_stage_outputs (
					id TEXT PRIMARY KEY,
					outcome_id TEXT NOT NULL REFERENCES classification_outcomes(id) ON DELETE CASCADE,
					stage TEXT NOT NULL,
					stage_order INTEGER NOT NULL,
					proposed_subcategory_id INTEGER,
					confidence REAL NOT NULL,
					rationale_code TEXT NOT NULL,
					rationale TEXT NOT NULL,
					escalated_to_next_stage BOOLEAN NOT NULL,
					produced_at DATETIME NOT NULL,
					UNIQUE (outcome_id, stage_order)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
