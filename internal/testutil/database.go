// Package testutil provides test utilities for the mosaic-money project.
// It offers migrated temp-dir databases and seeding helpers for transactions,
// subcategories and embeddings.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/storage"
	"github.com/Veraticus/mosaic-money/internal/testutil/taxonomy"
	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
)

// Default owners used by seeded transactions.
const (
	HouseholdID = "house-1"
	UserID      = "user-1"
	AccountID   = "acct-1"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage       *storage.SQLiteStorage
	t             *testing.T
	Subcategories taxonomy.Subcategories
}

// SetupTestDB creates a migrated SQLite database in a temp directory and seeds
// the subcategories configured on the builder. Cleanup is automatic.
//
// Example:
//
//	db := testutil.SetupTestDB(t, func(b *taxonomy.Builder) *taxonomy.Builder {
//		return b.WithFixture(taxonomy.FixtureStandard)
//	})
func SetupTestDB(t *testing.T, configure func(*taxonomy.Builder) *taxonomy.Builder) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "mosaic.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	builder := taxonomy.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	subs, err := builder.Build(ctx, store)
	if err != nil {
		t.Fatalf("failed to build subcategories: %v", err)
	}

	return &TestDB{
		Storage:       store,
		Subcategories: subs,
		t:             t,
	}
}

// Transaction returns an unclassified expense owned by the default household.
func Transaction(id, description, amount string) model.Transaction {
	return model.Transaction{
		ID:           id,
		HouseholdID:  HouseholdID,
		AccountID:    AccountID,
		OwnerUserID:  UserID,
		Description:  description,
		Amount:       decimal.RequireFromString(amount),
		Date:         time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		ReviewStatus: model.ReviewStatusNone,
	}
}

// MustID returns the id of the named subcategory or fails the test.
func (db *TestDB) MustID(name taxonomy.SubcategoryName) int64 {
	db.t.Helper()
	return db.Subcategories.MustID(db.t, name)
}

// AddTransactions saves transactions or fails the test.
func (db *TestDB) AddTransactions(txns ...model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to save transactions: %v", err)
	}
}

// AddClassified saves a transaction already assigned to the named
// subcategory, with its embedding.
func (db *TestDB) AddClassified(id string, name taxonomy.SubcategoryName, embedding ...float32) {
	db.t.Helper()
	txn := Transaction(id, id, "-10")
	txn.SubcategoryID = model.SubcategoryPtr(db.MustID(name))
	db.AddTransactions(txn)
	if len(embedding) > 0 {
		db.AddEmbedding(id, embedding...)
	}
}

// AddEmbedding stores an embedding or fails the test.
func (db *TestDB) AddEmbedding(transactionID string, values ...float32) {
	db.t.Helper()
	if err := db.Storage.SaveEmbedding(context.Background(), transactionID, pgvector.NewVector(values)); err != nil {
		db.t.Fatalf("failed to save embedding for %s: %v", transactionID, err)
	}
}

// MustTransaction loads a transaction or fails the test.
func (db *TestDB) MustTransaction(id string) *model.Transaction {
	db.t.Helper()
	txn, err := db.Storage.GetTransaction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load transaction %s: %v", id, err)
	}
	return txn
}
