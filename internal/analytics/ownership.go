package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stwalsh4118/housing/internal/models"
)

// OwnerSortKey selects the ordering of an owner ranking.
type OwnerSortKey string

// Supported owner orderings, all descending.
const (
	SortByProperties OwnerSortKey = "properties"
	SortByAcres      OwnerSortKey = "acres"
	SortByAssessment OwnerSortKey = "assessment"
)

// ParseOwnerSortKey validates a sort key; the empty string means properties.
func ParseOwnerSortKey(s string) (OwnerSortKey, error) {
	switch OwnerSortKey(s) {
	case "", SortByProperties:
		return SortByProperties, nil
	case SortByAcres, SortByAssessment:
		return OwnerSortKey(s), nil
	default:
		return "", fmt.Errorf("unknown owner sort key %q", s)
	}
}

// OwnershipSummary holds city-wide local versus non-local totals.
type OwnershipSummary struct {
	LocalPct          *float64 `json:"localPct"`
	NonLocalPct       *float64 `json:"nonLocalPct"`
	LocalLandPct      *float64 `json:"localLandPct"`
	NonLocalLandPct   *float64 `json:"nonLocalLandPct"`
	TotalParcels      int      `json:"totalParcels"`
	LocalParcels      int      `json:"localParcels"`
	NonLocalParcels   int      `json:"nonLocalParcels"`
	ExcludedParcels   int      `json:"excludedParcels"`
	TotalLandSqFt     float64  `json:"totalLandSqFt"`
	LocalLandSqFt     float64  `json:"localLandSqFt"`
	NonLocalLandSqFt  float64  `json:"nonLocalLandSqFt"`
	NonLocalLandAcres float64  `json:"nonLocalLandAcres"`
	AssessmentTracked bool     `json:"assessmentTracked"`
}

// OwnershipReport is the full ownership analysis.
type OwnershipReport struct {
	Owners  []models.OwnerAggregate `json:"owners"`
	Summary OwnershipSummary        `json:"summary"`
}

// NormalizeCityState trims and upper-cases an owner city/state.
func NormalizeCityState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsLocal reports whether an owner city/state is the local jurisdiction.
func IsLocal(cityState string) bool {
	return NormalizeCityState(cityState) == LocalJurisdiction
}

// AnalyzeOwnership classifies parcels as local or non-local and ranks owners
// by property count.
//
// Parcels without an owner city/state are excluded from every total. When
// assessmentTracked is false the source carries no assessment column and
// every owner's TotalAssessment is 0; this is the only place a missing value
// defaults to zero. Owners with equal counts keep first-encounter order.
func AnalyzeOwnership(parcels []models.ParcelRecord, assessmentTracked bool) OwnershipReport {
	summary := OwnershipSummary{AssessmentTracked: assessmentTracked}

	index := make(map[string]int)
	var owners []models.OwnerAggregate

	for _, p := range parcels {
		if p.OwnerCityState == nil {
			summary.ExcludedParcels++
			continue
		}

		summary.TotalParcels++
		summary.TotalLandSqFt += p.LotSquareFeet
		if IsLocal(*p.OwnerCityState) {
			summary.LocalParcels++
			summary.LocalLandSqFt += p.LotSquareFeet
		} else {
			summary.NonLocalParcels++
			summary.NonLocalLandSqFt += p.LotSquareFeet
		}

		if p.OwnerName == "" {
			continue
		}
		i, seen := index[p.OwnerName]
		if !seen {
			i = len(owners)
			index[p.OwnerName] = i
			owners = append(owners, models.OwnerAggregate{OwnerName: p.OwnerName})
		}
		owners[i].TotalProperties++
		owners[i].TotalSquareFeet += p.LotSquareFeet
		if assessmentTracked && p.Assessment != nil {
			owners[i].TotalAssessment += *p.Assessment
		}
	}

	total := float64(summary.TotalParcels)
	summary.LocalPct = Percent(float64(summary.LocalParcels), total)
	summary.NonLocalPct = Percent(float64(summary.NonLocalParcels), total)
	summary.LocalLandPct = Percent(summary.LocalLandSqFt, summary.TotalLandSqFt)
	summary.NonLocalLandPct = Percent(summary.NonLocalLandSqFt, summary.TotalLandSqFt)
	summary.NonLocalLandAcres = summary.NonLocalLandSqFt / SquareFeetPerAcre

	for i := range owners {
		owners[i].TotalAcres = owners[i].TotalSquareFeet / SquareFeetPerAcre
	}
	if owners == nil {
		owners = []models.OwnerAggregate{}
	}

	return OwnershipReport{
		Summary: summary,
		Owners:  SortOwners(owners, SortByProperties),
	}
}

// SortOwners returns a copy of owners ordered descending by key. The sort is
// stable so ties keep their incoming order.
func SortOwners(owners []models.OwnerAggregate, key OwnerSortKey) []models.OwnerAggregate {
	out := make([]models.OwnerAggregate, len(owners))
	copy(out, owners)

	var less func(a, b models.OwnerAggregate) bool
	switch key {
	case SortByAcres:
		less = func(a, b models.OwnerAggregate) bool { return a.TotalSquareFeet > b.TotalSquareFeet }
	case SortByAssessment:
		less = func(a, b models.OwnerAggregate) bool { return a.TotalAssessment > b.TotalAssessment }
	default:
		less = func(a, b models.OwnerAggregate) bool { return a.TotalProperties > b.TotalProperties }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// TopOwners returns at most limit owners. A non-positive limit returns all.
func TopOwners(owners []models.OwnerAggregate, limit int) []models.OwnerAggregate {
	if limit <= 0 || limit >= len(owners) {
		return owners
	}
	return owners[:limit]
}
