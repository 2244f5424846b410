package analytics

import (
	"sort"

	"github.com/stwalsh4118/housing/internal/models"
)

// groupByYear collects values per year for years >= minYear and returns the
// years in ascending order alongside the per-year values.
func groupByYear(n int, minYear int, at func(i int) (year int, value float64)) ([]int, map[int][]float64) {
	groups := make(map[int][]float64)
	for i := 0; i < n; i++ {
		year, value := at(i)
		if year < minYear {
			continue
		}
		groups[year] = append(groups[year], value)
	}

	years := make([]int, 0, len(groups))
	for year := range groups {
		years = append(years, year)
	}
	sort.Ints(years)

	return years, groups
}

// YearlySales computes median, mean, count and 75th percentile of sale
// amounts per calendar year, for years >= minYear, ascending by year.
// Years without sales are absent. Income fields are left nil; see WithIncome.
func YearlySales(sales []models.SaleRecord, minYear int) []models.YearlyStat {
	years, groups := groupByYear(len(sales), minYear, func(i int) (int, float64) {
		return sales[i].Year, sales[i].SaleAmount
	})

	stats := make([]models.YearlyStat, 0, len(years))
	for _, year := range years {
		s := sortedCopy(groups[year])
		stats = append(stats, models.YearlyStat{
			Year:         year,
			MedianPrice:  medianSorted(s),
			MeanPrice:    meanSorted(s),
			SaleCount:    len(s),
			Percentile75: quantileSorted(s, 0.75),
		})
	}
	return stats
}

// YearlyAssessments computes median, mean and count of total assessed value
// per tax year, for years >= minYear, ascending by year.
func YearlyAssessments(records []models.AssessmentRecord, minYear int) []models.AssessmentYearStat {
	years, groups := groupByYear(len(records), minYear, func(i int) (int, float64) {
		return records[i].TaxYear, records[i].TotalValue
	})

	stats := make([]models.AssessmentYearStat, 0, len(years))
	for _, year := range years {
		s := sortedCopy(groups[year])
		stats = append(stats, models.AssessmentYearStat{
			Year:        year,
			MedianValue: medianSorted(s),
			MeanValue:   meanSorted(s),
			Count:       len(s),
		})
	}
	return stats
}

// SalesVolume counts sales per year for years >= minYear, ascending.
func SalesVolume(sales []models.SaleRecord, minYear int) []models.YearCount {
	counts := make(map[int]int)
	for _, s := range sales {
		if s.Year >= minYear {
			counts[s.Year]++
		}
	}

	out := make([]models.YearCount, 0, len(counts))
	for year, count := range counts {
		out = append(out, models.YearCount{Year: year, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// MedianSince returns the median sale amount over every sale with
// Year >= fromYear, or nil when there are none.
func MedianSince(sales []models.SaleRecord, fromYear int) *float64 {
	values := make([]float64, 0, len(sales))
	for _, s := range sales {
		if s.Year >= fromYear {
			values = append(values, s.SaleAmount)
		}
	}
	m, ok := Median(values)
	if !ok {
		return nil
	}
	return &m
}

// FindYear returns the stat for year, if present.
func FindYear(stats []models.YearlyStat, year int) (models.YearlyStat, bool) {
	for _, s := range stats {
		if s.Year == year {
			return s, true
		}
	}
	return models.YearlyStat{}, false
}

// FindAssessmentYear returns the assessment stat for year, if present.
func FindAssessmentYear(stats []models.AssessmentYearStat, year int) (models.AssessmentYearStat, bool) {
	for _, s := range stats {
		if s.Year == year {
			return s, true
		}
	}
	return models.AssessmentYearStat{}, false
}

// FindVolume returns the sale count for year, if present.
func FindVolume(volume []models.YearCount, year int) (int, bool) {
	for _, v := range volume {
		if v.Year == year {
			return v.Count, true
		}
	}
	return 0, false
}
