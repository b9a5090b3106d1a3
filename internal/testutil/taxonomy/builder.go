// Package taxonomy provides test infrastructure for seeding subcategories.
// It offers a fluent API over the three visibility scopes so tests state
// exactly which subcategories a household can see.
//
// Example usage:
//
//	subs, err := taxonomy.NewBuilder(t).
//		WithFixture(taxonomy.FixtureStandard).
//		WithHousehold("house-1", "Allowance").
//		Build(ctx, store)
package taxonomy

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Creator is the slice of storage the builder needs.
type Creator interface {
	CreateSubcategory(ctx context.Context, subcategory *model.Subcategory) error
}

// SubcategoryName represents a strongly-typed subcategory name.
type SubcategoryName string

// String returns the string representation of the subcategory name.
func (n SubcategoryName) String() string {
	return string(n)
}

// Common platform subcategory names used across tests.
const (
	Groceries       SubcategoryName = "Groceries"
	CoffeeShops     SubcategoryName = "Coffee Shops"
	Restaurants     SubcategoryName = "Restaurants"
	FastFood        SubcategoryName = "Fast Food"
	Gas             SubcategoryName = "Gas"
	Parking         SubcategoryName = "Parking Fees"
	RideShare       SubcategoryName = "Ride Share"
	Streaming       SubcategoryName = "Streaming Services"
	Utilities       SubcategoryName = "Utilities"
	Pharmacy        SubcategoryName = "Pharmacy"
	HomeImprovement SubcategoryName = "Home Improvement"
	Books           SubcategoryName = "Books"
	Costco          SubcategoryName = "Costco"
	Insurance       SubcategoryName = "Insurance"
)

// Subcategories represents a collection of created test subcategories.
type Subcategories []model.Subcategory

// Find returns the subcategory with the given name, or nil if not found.
func (s Subcategories) Find(name SubcategoryName) *model.Subcategory {
	for i := range s {
		if s[i].Name == name.String() {
			return &s[i]
		}
	}
	return nil
}

// MustID returns the id of the named subcategory or fails the test.
func (s Subcategories) MustID(t *testing.T, name SubcategoryName) int64 {
	t.Helper()
	sub := s.Find(name)
	if sub == nil {
		t.Fatalf("subcategory %q not found in test data", name)
	}
	return sub.ID
}

// Builder constructs test subcategories across scopes.
type Builder struct {
	t    *testing.T
	subs map[string]model.Subcategory
}

// NewBuilder creates a new subcategory builder for the given test.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{
		t:    t,
		subs: make(map[string]model.Subcategory),
	}
}

// WithPlatform adds active platform subcategories visible to everyone.
func (b *Builder) WithPlatform(names ...SubcategoryName) *Builder {
	for _, name := range names {
		b.add(model.Subcategory{Scope: model.ScopePlatform, Name: name.String(), IsActive: true})
	}
	return b
}

// WithHousehold adds active subcategories owned by a household.
func (b *Builder) WithHousehold(householdID string, names ...SubcategoryName) *Builder {
	for _, name := range names {
		b.add(model.Subcategory{Scope: model.ScopeHousehold, HouseholdID: householdID, Name: name.String(), IsActive: true})
	}
	return b
}

// WithUser adds active subcategories owned by one household member.
func (b *Builder) WithUser(householdID, userID string, names ...SubcategoryName) *Builder {
	for _, name := range names {
		b.add(model.Subcategory{
			Scope:       model.ScopeUser,
			HouseholdID: householdID,
			UserID:      userID,
			Name:        name.String(),
			IsActive:    true,
		})
	}
	return b
}

// WithInactive adds a deactivated platform subcategory.
func (b *Builder) WithInactive(names ...SubcategoryName) *Builder {
	for _, name := range names {
		b.add(model.Subcategory{Scope: model.ScopePlatform, Name: name.String()})
	}
	return b
}

// WithFixture adds the platform subcategories of a predefined fixture.
func (b *Builder) WithFixture(fixture Fixture) *Builder {
	return b.WithPlatform(fixture.Subcategories...)
}

// Build creates the subcategories in store, ordered by scope then name.
func (b *Builder) Build(ctx context.Context, store Creator) (Subcategories, error) {
	b.t.Helper()

	keys := make([]string, 0, len(b.subs))
	for key := range b.subs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make(Subcategories, 0, len(keys))
	for _, key := range keys {
		sub := b.subs[key]
		if err := store.CreateSubcategory(ctx, &sub); err != nil {
			return nil, fmt.Errorf("failed to create subcategory %q: %w", sub.Name, err)
		}
		result = append(result, sub)
	}
	return result, nil
}

func (b *Builder) add(sub model.Subcategory) {
	key := fmt.Sprintf("%s/%s/%s/%s", sub.Scope, sub.HouseholdID, sub.UserID, sub.Name)
	b.subs[key] = sub
}
