package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/mosaic-money/internal/config"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `
subcategories:
  - {scope: platform, category: Food, name: Groceries}
  - {scope: platform, category: Transport, name: Gas}
  - {scope: household, category: Food, name: Coffee Shops, household_id: house-1}
transactions:
  - id: prior-1
    household_id: house-1
    account_id: acct-1
    owner_user_id: user-1
    description: WHOLE FOODS MARKET
    amount: "-54.12"
    date: 2026-05-01
    subcategory: Groceries
    embedding: [1, 0, 0]
  - id: prior-2
    household_id: house-1
    account_id: acct-1
    owner_user_id: user-1
    description: SHELL OIL 5521
    amount: "-40.00"
    date: 2026-05-02
    subcategory: Gas
    embedding: [0, 0, 1]
  - id: txn-1
    household_id: house-1
    account_id: acct-1
    owner_user_id: user-1
    description: ACME 1234
    amount: "-31.07"
    date: 2026-05-03
    embedding: [1, 0, 0]
  - id: txn-2
    household_id: house-1
    account_id: acct-1
    owner_user_id: user-1
    description: Coffee Shop Purchase
    amount: "-4.50"
    date: 2026-05-04
`

func createTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "mosaic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seed, err := parseSeed([]byte(testSeed))
	require.NoError(t, err)

	summary, err := applySeed(ctx, store, seed)
	require.NoError(t, err)
	assert.Equal(t, seedSummary{Subcategories: 3, Transactions: 4, Embeddings: 3}, summary)

	prior, err := store.GetTransaction(ctx, "prior-1")
	require.NoError(t, err)
	require.NotNil(t, prior.SubcategoryID)
	assert.Equal(t, model.ReviewStatusNone, prior.ReviewStatus)
	assert.Equal(t, "-54.12", prior.Amount.String())

	embedding, err := store.GetTransactionEmbedding(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, embedding.Slice())

	// Seeding again reuses subcategories and leaves transactions alone.
	again, err := applySeed(ctx, store, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Subcategories)
	assert.Equal(t, 3, again.Existing)

	count, err := store.CountVisibleSubcategories(ctx, model.TaxonomyScope{HouseholdID: "house-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestApplySeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown subcategory",
			yaml: `
transactions:
  - {id: t-1, household_id: h, description: x, amount: "-1", date: 2026-05-01, subcategory: Nope}`,
			wantErr: `unknown subcategory "Nope"`,
		},
		{
			name: "bad amount",
			yaml: `
transactions:
  - {id: t-1, household_id: h, description: x, amount: "ten", date: 2026-05-01}`,
			wantErr: "invalid amount",
		},
		{
			name: "bad date",
			yaml: `
transactions:
  - {id: t-1, household_id: h, description: x, amount: "-1", date: 05/01/2026}`,
			wantErr: "invalid date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := parseSeed([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = applySeed(context.Background(), createTestStore(t), seed)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSeed_InvalidYAML(t *testing.T) {
	_, err := parseSeed([]byte("subcategories: [unclosed"))
	assert.Error(t, err)
}

func TestClassifyBatch_SeededDatabase(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	seed, err := parseSeed([]byte(testSeed))
	require.NoError(t, err)
	_, err = applySeed(ctx, store, seed)
	require.NoError(t, err)

	cfg, err := config.LoadPipeline(viper.New())
	require.NoError(t, err)
	pipeline, err := buildPipeline(cfg, store)
	require.NoError(t, err)

	require.NoError(t, classifyBatch(ctx, pipeline, []string{"txn-1", "txn-2"}, 2))

	name := subcategoryNamer(ctx, store)
	for id, want := range map[string]string{"txn-1": "Groceries", "txn-2": "Coffee Shops"} {
		txn, err := store.GetTransaction(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, txn.SubcategoryID, id)
		assert.Equal(t, want, name(*txn.SubcategoryID), id)

		outcomes, err := store.GetOutcomes(ctx, id)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, model.DecisionCategorized, outcomes[0].Decision)
	}
}
