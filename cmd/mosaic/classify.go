// Package main contains the mosaic CLI commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/mosaic-money/internal/cli"
	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/engine"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [TRANSACTION_ID...]",
		Short: "Classify transactions",
		Long: `Run the classification pipeline on one or more transactions.

Each transaction goes through deterministic matching, semantic retrieval,
specialist routing and, when enabled, the fallback agent. Every run is stored
as an auditable outcome. Anything the pipeline cannot settle confidently is
routed to review instead of being guessed.

Examples:
  mosaic classify t-1                 # Classify one transaction and show the outcome
  mosaic classify t-1 t-2 t-3         # Classify several transactions
  mosaic classify --pending           # Classify everything not yet classified
  mosaic classify --pending --household house-1 --limit 100`,
		RunE: runClassify,
	}

	cmd.Flags().Bool("pending", false, "Classify every transaction with no subcategory and no review state")
	cmd.Flags().String("household", "", "Only classify pending transactions of this household")
	cmd.Flags().Int("limit", 0, "Maximum number of pending transactions (0 = all)")
	cmd.Flags().IntP("parallel", "p", 0, "Number of transactions to classify concurrently (default from config)")

	_ = viper.BindPFlag("classification.pending", cmd.Flags().Lookup("pending"))
	_ = viper.BindPFlag("classification.household", cmd.Flags().Lookup("household"))
	_ = viper.BindPFlag("classification.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pending := viper.GetBool("classification.pending")

	if !pending && len(args) == 0 {
		return common.NewUserError("nothing to classify: pass transaction ids or --pending", common.ErrNoTransactions)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if parallel, _ := cmd.Flags().GetInt("parallel"); parallel > 0 {
		cfg.Parallelism = parallel
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	pipeline, err := buildPipeline(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	ids := args
	if pending {
		ids, err = store.ListTransactionIDs(ctx, service.TransactionFilter{
			HouseholdID:      viper.GetString("classification.household"),
			OnlyUnclassified: true,
			Limit:            viper.GetInt("classification.limit"),
		})
		if err != nil {
			return fmt.Errorf("failed to list pending transactions: %w", err)
		}
		ids = append(ids, args...)
	}

	if len(ids) == 0 {
		fmt.Println(cli.FormatInfo("No pending transactions. Everything is classified or in review."))
		return nil
	}

	slog.Info("Starting classification",
		"transactions", len(ids),
		"parallelism", cfg.Parallelism,
		"fallback", cfg.FallbackEnabled,
		"routing", cfg.RoutingEnabled)

	if len(ids) == 1 && !pending {
		outcome, err := pipeline.Run(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}
		fmt.Println(cli.RenderOutcome(*outcome, subcategoryNamer(ctx, store)))
		return nil
	}

	return classifyBatch(ctx, pipeline, ids, cfg.Parallelism)
}

func classifyBatch(ctx context.Context, runner engine.Runner, ids []string, parallelism int) error {
	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx = interrupts.HandleInterrupts(ctx, "mosaic classify --pending")
	defer interrupts.Stop()

	bar := cli.NewProgressBar(os.Stderr, len(ids), "Classifying transactions...")
	results, stats, err := engine.NewBatchRunner(runner).ClassifyMany(ctx, ids, engine.BatchOptions{
		Parallelism: parallelism,
		OnResult: func(engine.BatchResult) {
			_ = bar.Add(1)
		},
	})
	_ = bar.Finish()

	fmt.Println(cli.RenderStats(stats))

	for _, res := range results {
		if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
			fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", res.TransactionID, res.Err)))
		}
	}

	if err != nil {
		if interrupts.WasInterrupted() || errors.Is(err, context.Canceled) {
			slog.Warn("Classification interrupted")
			return nil
		}
		return fmt.Errorf("classification failed: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d transactions failed", common.ErrClassificationFailed, stats.Failed, stats.Total)
	}
	return nil
}
