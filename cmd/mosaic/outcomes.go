package main

import (
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/cli"
	"github.com/spf13/cobra"
)

func outcomesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outcomes TRANSACTION_ID",
		Short: "Show the classification history of a transaction",
		Long: `Show every stored classification outcome for a transaction, oldest first,
with the output of each pipeline stage.`,
		Args: cobra.ExactArgs(1),
		RunE: runOutcomes,
	}

	cmd.Flags().Bool("latest", false, "Only show the most recent outcome")

	return cmd
}

func runOutcomes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	latest, _ := cmd.Flags().GetBool("latest")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransaction(ctx, args[0])
	if err != nil {
		return err
	}
	outcomes, err := store.GetOutcomes(ctx, txn.ID)
	if err != nil {
		return err
	}

	name := subcategoryNamer(ctx, store)
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%s  %s  %s", txn.ID, txn.Description, txn.Amount.StringFixed(2))))
	fmt.Printf("Subcategory: %s\nReview status: %s\n", cli.FormatSubcategory(txn.SubcategoryID, name), txn.ReviewStatus)
	if txn.ReviewReason != "" {
		fmt.Printf("Review reason: %s\n", txn.ReviewReason)
	}
	fmt.Println()

	if len(outcomes) == 0 {
		fmt.Println(cli.FormatInfo("No outcomes recorded yet. Run: mosaic classify " + txn.ID))
		return nil
	}
	if latest {
		outcomes = outcomes[len(outcomes)-1:]
	}
	for _, outcome := range outcomes {
		fmt.Println(cli.RenderOutcome(outcome, name))
	}
	return nil
}
