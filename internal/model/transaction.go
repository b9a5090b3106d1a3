package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a ledger transaction as seen by the classification pipeline.
type Transaction struct {
	Date           time.Time
	SubcategoryID  *int64
	Amount         decimal.Decimal // negative = expense, positive = income
	ID             string
	HouseholdID    string
	AccountID      string
	OwnerUserID    string
	Description    string
	ReviewStatus   ReviewStatus
	ReviewReason   string
	ReviewAssignee string
	Version        int64
}

// IsExpense reports whether the transaction moves money out of the household.
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Scope returns the taxonomy visibility scope for the transaction.
func (t *Transaction) Scope() TaxonomyScope {
	return TaxonomyScope{
		HouseholdID: t.HouseholdID,
		UserID:      t.OwnerUserID,
	}
}

// Request builds the immutable classification request for the transaction.
func (t *Transaction) Request(candidates []Candidate) ClassificationRequest {
	cands := make([]Candidate, len(candidates))
	copy(cands, candidates)
	return ClassificationRequest{
		TransactionID: t.ID,
		Description:   t.Description,
		Amount:        t.Amount,
		Date:          t.Date,
		Candidates:    cands,
	}
}

// ClassificationRequest is the immutable input of the deterministic stage.
type ClassificationRequest struct {
	Date          time.Time
	Amount        decimal.Decimal
	TransactionID string
	Description   string
	Candidates    []Candidate
}

// TransactionMutation is the change the pipeline applies to a transaction
// alongside its outcome.
type TransactionMutation struct {
	SubcategoryID   *int64
	TransactionID   string
	ReviewStatus    ReviewStatus
	ReviewReason    string
	ReviewAssignee  string
	ExpectedVersion int64
}
