package model

import "time"

// TaxonomyScopeKind indicates who can see a subcategory.
type TaxonomyScopeKind string

const (
	// ScopePlatform subcategories are visible to every household.
	ScopePlatform TaxonomyScopeKind = "platform"
	// ScopeHousehold subcategories are visible to one household.
	ScopeHousehold TaxonomyScopeKind = "household"
	// ScopeUser subcategories are visible to a single user.
	ScopeUser TaxonomyScopeKind = "user"
)

// Subcategory is a leaf of the household expense taxonomy.
type Subcategory struct {
	CreatedAt    time.Time
	CategoryName string
	Name         string
	Scope        TaxonomyScopeKind
	HouseholdID  string
	UserID       string
	ID           int64
	IsActive     bool
}

// Candidate is a subcategory offered to the pipeline as a possible answer.
type Candidate struct {
	Name          string
	SubcategoryID int64
}

// TaxonomyScope narrows which subcategories are visible for a transaction.
type TaxonomyScope struct {
	HouseholdID string
	UserID      string
}

// Readiness reports whether the taxonomy can support automatic classification.
type Readiness struct {
	Reason           string
	SubcategoryCount int
	FillRate         float64
	Ready            bool
}
