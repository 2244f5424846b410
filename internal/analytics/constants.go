// Package analytics derives the housing statistics served by the API.
//
// Every function here is a pure computation over records from an immutable
// dataset snapshot. Inputs are never mutated; results are recomputed on each
// call and depend only on the arguments.
package analytics

// Fixed analysis constants.
const (
	// NonMarketFloor is the sale amount at or below which a sale is treated
	// as a non-market transaction and excluded.
	NonMarketFloor = 10000.0

	// AffordabilityMultiplier converts a household income into the home
	// price considered affordable for it.
	AffordabilityMultiplier = 3.0

	// ReferenceMedianIncome is the median household income for the most
	// recent full year (2023).
	ReferenceMedianIncome = 69829.0

	// SquareFeetPerAcre converts lot areas to acres.
	SquareFeetPerAcre = 43560.0

	// LocalJurisdiction is the normalized owner city/state of a local owner.
	LocalJurisdiction = "CHARLOTTESVILLE VA"

	// SaleDateLayout is the layout of the sales table's date column.
	SaleDateLayout = "2006/01/02 15:04:05+00"
)

// Default years used by the dashboard views.
const (
	DefaultMinYear       = 2000
	RecentYear           = 2024
	ComparisonYear       = 2020
	BaselineYear         = 2021
	ReferenceIncomeYear  = 2023
	DefaultTopOwnerLimit = 10
)
