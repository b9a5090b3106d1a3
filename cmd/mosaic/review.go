package main

import (
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/cli"
	"github.com/Veraticus/mosaic-money/internal/engine"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Record a human review decision",
		Long: `Move a transaction through the review workflow.

Examples:
  mosaic review approve t-1                     # Accept the latest proposal
  mosaic review approve t-1 --subcategory 7     # Accept a specific subcategory
  mosaic review reclassify t-1 --subcategory 9  # Correct a reviewed transaction
  mosaic review escalate t-1 --reason "split purchase"`,
	}

	cmd.AddCommand(reviewActionCmd("approve", "Approve a proposal and mark the transaction reviewed", model.ReviewActionApprove))
	cmd.AddCommand(reviewActionCmd("reclassify", "Assign a different subcategory to a reviewed transaction", model.ReviewActionReclassify))
	cmd.AddCommand(reviewActionCmd("escalate", "Send a transaction back to review", model.ReviewActionRouteToNeedsReview))

	return cmd
}

func reviewActionCmd(use, short string, action model.ReviewAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " TRANSACTION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, args[0], action)
		},
	}

	cmd.Flags().Int64("subcategory", 0, "Subcategory id to settle on")
	cmd.Flags().String("reviewer", "", "Who made the decision")
	if action == model.ReviewActionRouteToNeedsReview {
		cmd.Flags().String("reason", "", "Why the transaction needs review")
	}

	return cmd
}

func runReview(cmd *cobra.Command, transactionID string, action model.ReviewAction) error {
	ctx := cmd.Context()

	req := engine.ReviewRequest{
		TransactionID: transactionID,
		Action:        action,
	}
	req.Reviewer, _ = cmd.Flags().GetString("reviewer")
	if cmd.Flags().Lookup("reason") != nil {
		req.Reason, _ = cmd.Flags().GetString("reason")
	}
	if sub, _ := cmd.Flags().GetInt64("subcategory"); sub > 0 {
		req.SubcategoryID = &sub
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if req.SubcategoryID != nil {
		if _, err := store.GetSubcategory(ctx, *req.SubcategoryID); err != nil {
			return fmt.Errorf("subcategory %d: %w", *req.SubcategoryID, err)
		}
	}

	txn, err := engine.ApplyReview(ctx, store, req)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now %s with subcategory %s",
		txn.ID, txn.ReviewStatus, cli.FormatSubcategory(txn.SubcategoryID, subcategoryNamer(ctx, store)))))
	return nil
}
