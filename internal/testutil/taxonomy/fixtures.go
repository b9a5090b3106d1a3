package taxonomy

// Fixture is a predefined set of platform subcategories.
type Fixture struct {
	Name          string
	Subcategories []SubcategoryName
}

// Predefined fixtures for common test scenarios.
var (
	// FixtureMinimal is enough for single-match unit tests.
	FixtureMinimal = Fixture{
		Name:          "Minimal",
		Subcategories: []SubcategoryName{Groceries, CoffeeShops, Gas},
	}

	// FixtureStandard covers the everyday spending a household sees.
	FixtureStandard = Fixture{
		Name: "Standard",
		Subcategories: []SubcategoryName{
			Groceries,
			CoffeeShops,
			Restaurants,
			FastFood,
			Gas,
			Parking,
			RideShare,
			Streaming,
			Utilities,
			Pharmacy,
		},
	}

	// FixtureConflicting holds names that share keywords so deterministic
	// scoring produces near ties.
	FixtureConflicting = Fixture{
		Name:          "Conflicting",
		Subcategories: []SubcategoryName{Gas, Costco, Books, HomeImprovement, "Gas Station Snacks", "Costco Membership Fees"},
	}
)
