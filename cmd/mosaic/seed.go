package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/mosaic-money/internal/cli"
	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by the seed command.
type seedFile struct {
	Subcategories []seedSubcategory `yaml:"subcategories"`
	Transactions  []seedTransaction `yaml:"transactions"`
}

type seedSubcategory struct {
	Scope       string `yaml:"scope"`
	Category    string `yaml:"category"`
	Name        string `yaml:"name"`
	HouseholdID string `yaml:"household_id"`
	UserID      string `yaml:"user_id"`
}

type seedTransaction struct {
	ID           string    `yaml:"id"`
	HouseholdID  string    `yaml:"household_id"`
	AccountID    string    `yaml:"account_id"`
	OwnerUserID  string    `yaml:"owner_user_id"`
	Description  string    `yaml:"description"`
	Amount       string    `yaml:"amount"`
	Date         string    `yaml:"date"`
	Subcategory  string    `yaml:"subcategory"`
	ReviewStatus string    `yaml:"review_status"`
	Embedding    []float32 `yaml:"embedding"`
}

// seedSummary counts what a seed run wrote.
type seedSummary struct {
	Subcategories int
	Existing      int
	Transactions  int
	Embeddings    int
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load subcategories, transactions and embeddings from YAML",
		Long: `Load a YAML fixture into the database.

Subcategories that already exist are reused. Transactions that already exist
are left untouched, so seeding the same file twice is safe. A transaction may
name a subcategory to start out classified, and may carry an embedding for
semantic retrieval.

Example file:
  subcategories:
    - {scope: platform, category: Food, name: Groceries}
  transactions:
    - id: t-1
      household_id: house-1
      account_id: acct-1
      owner_user_id: user-1
      description: WHOLE FOODS MARKET
      amount: "-54.12"
      date: 2026-05-01
      subcategory: Groceries
      embedding: [0.1, 0.9, 0.0]`,
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
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

	summary, err := applySeed(ctx, store, seed)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Seeded %d subcategories (%d already present), %d transactions, %d embeddings",
		summary.Subcategories, summary.Existing, summary.Transactions, summary.Embeddings)))
	return nil
}

func parseSeed(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

func applySeed(ctx context.Context, store service.Storage, seed *seedFile) (seedSummary, error) {
	var summary seedSummary
	ids := make(map[string]int64, len(seed.Subcategories))

	for _, s := range seed.Subcategories {
		sub := &model.Subcategory{
			Scope:        model.TaxonomyScopeKind(strings.ToLower(s.Scope)),
			CategoryName: s.Category,
			Name:         s.Name,
			HouseholdID:  s.HouseholdID,
			UserID:       s.UserID,
			IsActive:     true,
		}
		if sub.Scope == "" {
			sub.Scope = model.ScopePlatform
		}

		err := store.CreateSubcategory(ctx, sub)
		switch {
		case err == nil:
			summary.Subcategories++
		case errors.Is(err, common.ErrDuplicateEntry):
			id, lookupErr := existingSubcategory(ctx, store, s)
			if lookupErr != nil {
				return summary, lookupErr
			}
			sub.ID = id
			summary.Existing++
		default:
			return summary, fmt.Errorf("failed to create subcategory %q: %w", s.Name, err)
		}
		ids[s.Name] = sub.ID
	}

	txns := make([]model.Transaction, 0, len(seed.Transactions))
	for _, t := range seed.Transactions {
		txn, err := t.toModel(ids)
		if err != nil {
			return summary, err
		}
		txns = append(txns, txn)
	}
	if len(txns) > 0 {
		if err := store.SaveTransactions(ctx, txns); err != nil {
			return summary, fmt.Errorf("failed to save transactions: %w", err)
		}
		summary.Transactions = len(txns)
	}

	for _, t := range seed.Transactions {
		if len(t.Embedding) == 0 {
			continue
		}
		if err := store.SaveEmbedding(ctx, t.ID, pgvector.NewVector(t.Embedding)); err != nil {
			return summary, fmt.Errorf("failed to save embedding for %s: %w", t.ID, err)
		}
		summary.Embeddings++
	}

	return summary, nil
}

// existingSubcategory finds the id of a subcategory that is already stored.
func existingSubcategory(ctx context.Context, store service.Storage, s seedSubcategory) (int64, error) {
	candidates, err := store.GetCandidates(ctx, model.TaxonomyScope{HouseholdID: s.HouseholdID, UserID: s.UserID})
	if err != nil {
		return 0, fmt.Errorf("failed to look up subcategory %q: %w", s.Name, err)
	}
	for _, c := range candidates {
		if c.Name == s.Name {
			return c.SubcategoryID, nil
		}
	}
	return 0, fmt.Errorf("subcategory %q exists but is not visible: %w", s.Name, common.ErrNotFound)
}

func (t seedTransaction) toModel(ids map[string]int64) (model.Transaction, error) {
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: invalid amount %q: %w", t.ID, t.Amount, err)
	}
	date, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: invalid date %q (use YYYY-MM-DD): %w", t.ID, t.Date, err)
	}

	txn := model.Transaction{
		ID:           t.ID,
		HouseholdID:  t.HouseholdID,
		AccountID:    t.AccountID,
		OwnerUserID:  t.OwnerUserID,
		Description:  t.Description,
		Amount:       amount,
		Date:         date,
		ReviewStatus: model.ReviewStatus(t.ReviewStatus),
	}
	if t.Subcategory != "" {
		id, ok := ids[t.Subcategory]
		if !ok {
			return model.Transaction{}, fmt.Errorf("transaction %s: unknown subcategory %q", t.ID, t.Subcategory)
		}
		txn.SubcategoryID = &id
	}
	return txn, nil
}
