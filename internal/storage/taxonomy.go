package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
)

// visibleClause selects active subcategories a scope can see: every platform
// row, the household's rows, and the user's own rows.
const visibleClause = `is_active = 1 AND (
		scope = 'platform'
		OR (scope = 'household' AND household_id = ?)
		OR (scope = 'user' AND household_id = ? AND user_id = ?)
	)`

// CreateSubcategory inserts a subcategory and fills in its id.
func (s *SQLiteStorage) CreateSubcategory(ctx context.Context, sub *model.Subcategory) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubcategory(sub); err != nil {
		return err
	}

	createdAt := s.now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO subcategories (scope, household_id, user_id, category_name, name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(sub.Scope), sub.HouseholdID, sub.UserID, sub.CategoryName, strings.TrimSpace(sub.Name), sub.IsActive, createdAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("subcategory %q: %w", sub.Name, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create subcategory: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get subcategory ID: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = createdAt
	return nil
}

// GetSubcategory retrieves a subcategory by id, active or not.
func (s *SQLiteStorage) GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		sub   model.Subcategory
		scope string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scope, household_id, user_id, category_name, name, is_active, created_at
		FROM subcategories WHERE id = ?
	`, id).Scan(&sub.ID, &scope, &sub.HouseholdID, &sub.UserID, &sub.CategoryName, &sub.Name, &sub.IsActive, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subcategory %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subcategory %d: %w", id, err)
	}
	sub.Scope = model.TaxonomyScopeKind(scope)
	return &sub, nil
}

// GetCandidates returns the active subcategories visible to scope, ordered by
// name then id.
func (s *SQLiteStorage) GetCandidates(ctx context.Context, scope model.TaxonomyScope) ([]model.Candidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM subcategories
		WHERE `+visibleClause+`
		ORDER BY name, id
	`, scope.HouseholdID, scope.HouseholdID, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.SubcategoryID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// CountVisibleSubcategories counts the active subcategories visible to scope.
func (s *SQLiteStorage) CountVisibleSubcategories(ctx context.Context, scope model.TaxonomyScope) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subcategories WHERE `+visibleClause,
		scope.HouseholdID, scope.HouseholdID, scope.UserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subcategories: %w", err)
	}
	return count, nil
}

// HouseholdFillRate returns the share of the household's transactions that
// carry a subcategory. A household with no transactions has a rate of zero.
func (s *SQLiteStorage) HouseholdFillRate(ctx context.Context, householdID string) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var total, filled int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(subcategory_id) FROM transactions WHERE household_id = ?
	`, householdID).Scan(&total, &filled)
	if err != nil {
		return 0, fmt.Errorf("failed to compute fill rate: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(filled) / float64(total), nil
}
