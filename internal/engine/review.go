package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/review"
)

// ErrNoSubcategory is returned when a review action has no subcategory to
// settle on.
var ErrNoSubcategory = errors.New("review needs a subcategory")

// ReviewRequest is a human decision on one transaction.
type ReviewRequest struct {
	SubcategoryID *int64
	TransactionID string
	Action        model.ReviewAction
	Reviewer      string
	Reason        string
}

// ApplyReview moves a transaction through the review state machine.
//
// Approve settles on the given subcategory, else the latest outcome's
// proposal, else the current assignment. Reclassify needs an explicit
// subcategory. RouteToNeedsReview keeps the current assignment and records
// the reason.
func ApplyReview(ctx context.Context, store ReviewStore, req ReviewRequest) (*model.Transaction, error) {
	txn, err := store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", req.TransactionID, err)
	}

	next, err := review.Transition(txn.ReviewStatus, req.Action)
	if err != nil {
		return nil, err
	}

	mutation := model.TransactionMutation{
		TransactionID:   txn.ID,
		ExpectedVersion: txn.Version,
		ReviewStatus:    next,
		SubcategoryID:   txn.SubcategoryID,
	}

	switch req.Action {
	case model.ReviewActionApprove:
		subcategory := req.SubcategoryID
		if subcategory == nil {
			subcategory, err = latestProposal(ctx, store, txn.ID)
			if err != nil {
				return nil, err
			}
		}
		if subcategory == nil {
			subcategory = txn.SubcategoryID
		}
		if subcategory == nil {
			return nil, fmt.Errorf("%w: nothing to approve for %s", ErrNoSubcategory, txn.ID)
		}
		mutation.SubcategoryID = subcategory
	case model.ReviewActionReclassify:
		if req.SubcategoryID == nil {
			return nil, fmt.Errorf("%w: reclassify %s", ErrNoSubcategory, txn.ID)
		}
		mutation.SubcategoryID = req.SubcategoryID
	case model.ReviewActionRouteToNeedsReview:
		mutation.ReviewReason = strings.TrimSpace(req.Reason)
		if mutation.ReviewReason == "" {
			mutation.ReviewReason = model.ReasonManualEscalation
		}
		mutation.ReviewAssignee = req.Reviewer
	}

	if err := store.UpdateReviewState(ctx, mutation); err != nil {
		return nil, fmt.Errorf("failed to update review state for %s: %w", txn.ID, err)
	}

	txn.ReviewStatus = mutation.ReviewStatus
	txn.ReviewReason = mutation.ReviewReason
	txn.ReviewAssignee = mutation.ReviewAssignee
	txn.SubcategoryID = mutation.SubcategoryID
	txn.Version++
	return txn, nil
}

func latestProposal(ctx context.Context, store ReviewStore, transactionID string) (*int64, error) {
	outcomes, err := store.GetOutcomes(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes for %s: %w", transactionID, err)
	}
	// Outcomes are oldest first.
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].ProposedSubcategoryID != nil {
			return outcomes[i].ProposedSubcategoryID, nil
		}
	}
	return nil, nil //nolint:nilnil // no proposal is a valid result
}
