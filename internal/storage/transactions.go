package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, household_id, account_id, owner_user_id, description, amount, date,
	review_status, review_reason, review_assignee, subcategory_id, version`

// SaveTransactions inserts new transactions. Existing ids are left untouched
// so re-importing a feed never clobbers review state.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			status := txn.ReviewStatus
			if status == "" {
				status = model.ReviewStatusNone
			}
			_, err := stmt.ExecContext(ctx,
				txn.ID,
				txn.HouseholdID,
				txn.AccountID,
				txn.OwnerUserID,
				txn.Description,
				txn.Amount.String(),
				txn.Date.UTC(),
				string(status),
				txn.ReviewReason,
				txn.ReviewAssignee,
				nullableID(txn.SubcategoryID),
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetTransaction retrieves a single transaction by id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// ListTransactionIDs returns transaction ids ordered by date then id.
func (s *SQLiteStorage) ListTransactionIDs(ctx context.Context, filter service.TransactionFilter) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.HouseholdID != "" {
		where = append(where, "household_id = ?")
		args = append(args, filter.HouseholdID)
	}
	if filter.OnlyUnclassified {
		where = append(where, "subcategory_id IS NULL", "review_status = ?")
		args = append(args, string(model.ReviewStatusNone))
	}

	query := `SELECT id FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateReviewState applies a review mutation guarded by the transaction
// version.
func (s *SQLiteStorage) UpdateReviewState(ctx context.Context, mutation model.TransactionMutation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(mutation.TransactionID, "transactionID"); err != nil {
		return err
	}
	if !mutation.ReviewStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReviewStatus, mutation.ReviewStatus)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return applyMutationTx(ctx, tx, mutation)
	})
}

// applyMutationTx updates the transaction only if its version still matches
// the version the caller read.
func applyMutationTx(ctx context.Context, tx *sql.Tx, mutation model.TransactionMutation) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET subcategory_id = ?, review_status = ?, review_reason = ?, review_assignee = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`,
		nullableID(mutation.SubcategoryID),
		string(mutation.ReviewStatus),
		mutation.ReviewReason,
		mutation.ReviewAssignee,
		mutation.TransactionID,
		mutation.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", mutation.TransactionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE id = ?`, mutation.TransactionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check transaction %s: %w", mutation.TransactionID, err)
	}
	if exists == 0 {
		return fmt.Errorf("transaction %s: %w", mutation.TransactionID, common.ErrNotFound)
	}
	return fmt.Errorf("transaction %s at version %d: %w",
		mutation.TransactionID, mutation.ExpectedVersion, common.ErrConcurrentUpdate)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn           model.Transaction
		amount        string
		status        string
		subcategoryID sql.NullInt64
	)
	err := row.Scan(
		&txn.ID,
		&txn.HouseholdID,
		&txn.AccountID,
		&txn.OwnerUserID,
		&txn.Description,
		&amount,
		&txn.Date,
		&status,
		&txn.ReviewReason,
		&txn.ReviewAssignee,
		&subcategoryID,
		&txn.Version,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q for %s: %w", amount, txn.ID, err)
	}
	txn.ReviewStatus = model.ReviewStatus(status)
	if subcategoryID.Valid {
		txn.SubcategoryID = model.SubcategoryPtr(subcategoryID.Int64)
	}
	return &txn, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
