package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidSubcategory  = errors.New("invalid subcategory")
	ErrInvalidOutcome      = errors.New("invalid classification outcome")
	ErrInvalidReviewStatus = errors.New("invalid review status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.HouseholdID == "" {
		return fmt.Errorf("%w: missing household ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.ReviewStatus != "" && !txn.ReviewStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReviewStatus, txn.ReviewStatus)
	}
	return nil
}

func validateSubcategory(sub *model.Subcategory) error {
	if sub == nil {
		return fmt.Errorf("%w: subcategory", ErrNilParameter)
	}
	if strings.TrimSpace(sub.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSubcategory)
	}
	switch sub.Scope {
	case model.ScopePlatform:
		if sub.HouseholdID != "" || sub.UserID != "" {
			return fmt.Errorf("%w: platform subcategory cannot have an owner", ErrInvalidSubcategory)
		}
	case model.ScopeHousehold:
		if sub.HouseholdID == "" {
			return fmt.Errorf("%w: household subcategory needs a household ID", ErrInvalidSubcategory)
		}
	case model.ScopeUser:
		if sub.HouseholdID == "" || sub.UserID == "" {
			return fmt.Errorf("%w: user subcategory needs household and user IDs", ErrInvalidSubcategory)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidSubcategory, sub.Scope)
	}
	return nil
}

func validateOutcome(outcome *model.ClassificationOutcome, mutation model.TransactionMutation) error {
	if outcome == nil {
		return fmt.Errorf("%w: outcome", ErrNilParameter)
	}
	if outcome.ID == "" || outcome.TransactionID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidOutcome)
	}
	if outcome.TransactionID != mutation.TransactionID {
		return fmt.Errorf("%w: outcome for %s carries mutation for %s",
			ErrInvalidOutcome, outcome.TransactionID, mutation.TransactionID)
	}
	if strings.TrimSpace(outcome.ReasonCode) == "" || strings.TrimSpace(outcome.Rationale) == "" {
		return fmt.Errorf("%w: reason code and rationale are required", ErrInvalidOutcome)
	}
	if !mutation.ReviewStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReviewStatus, mutation.ReviewStatus)
	}
	return nil
}
