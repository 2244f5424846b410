package analytics

import (
	"github.com/stwalsh4118/housing/internal/models"
)

// An undefined result is a nil *float64. Every ratio below returns nil when
// a denominator is zero or absent instead of returning a misleading zero.

func ptr(v float64) *float64 { return &v }

// AffordablePrice is the home price affordable on the given income.
func AffordablePrice(income float64) float64 {
	return income * AffordabilityMultiplier
}

// WithIncome returns a copy of stats with MedianIncome and AffordablePrice
// filled for every year the table knows. Years without a published income
// keep nil fields.
func WithIncome(stats []models.YearlyStat, table IncomeTable) []models.YearlyStat {
	out := make([]models.YearlyStat, len(stats))
	for i, s := range stats {
		out[i] = s
		out[i].MedianIncome = nil
		out[i].AffordablePrice = nil
		if inc, ok := table.Lookup(s.Year); ok {
			out[i].MedianIncome = ptr(inc)
			out[i].AffordablePrice = ptr(AffordablePrice(inc))
		}
	}
	return out
}

// AffordabilityGap is the actual median price minus the affordable price.
func AffordabilityGap(medianPrice, affordablePrice *float64) *float64 {
	if medianPrice == nil || affordablePrice == nil {
		return nil
	}
	return ptr(*medianPrice - *affordablePrice)
}

// RequiredIncome is the household income needed to afford medianPrice.
func RequiredIncome(medianPrice *float64) *float64 {
	if medianPrice == nil {
		return nil
	}
	return ptr(*medianPrice / AffordabilityMultiplier)
}

// Ratio divides num by den.
func Ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return ptr(*num / *den)
}

// PercentChange is the change from older to newer as a percentage of older.
func PercentChange(older, newer *float64) *float64 {
	if older == nil || newer == nil || *older == 0 {
		return nil
	}
	return ptr((*newer - *older) / *older * 100)
}

// Percent is part as a percentage of total.
func Percent(part, total float64) *float64 {
	if total == 0 {
		return nil
	}
	return ptr(part / total * 100)
}

// AffordableShare counts sales with Year >= fromYear and the share of them
// priced at or below affordablePrice. pct is nil when there are no such sales.
func AffordableShare(sales []models.SaleRecord, fromYear int, affordablePrice float64) (pct *float64, affordable, total int) {
	for _, s := range sales {
		if s.Year < fromYear {
			continue
		}
		total++
		if s.SaleAmount <= affordablePrice {
			affordable++
		}
	}
	return Percent(float64(affordable), float64(total)), affordable, total
}

// OverviewParams selects the years and income behind the headline metrics.
type OverviewParams struct {
	RecentYear      int     `json:"recentYear"`
	ComparisonYear  int     `json:"comparisonYear"`
	ReferenceIncome float64 `json:"referenceIncome"`
}

// DefaultOverviewParams compares 2024 onward against 2020 onward using the
// 2023 reference income.
func DefaultOverviewParams() OverviewParams {
	return OverviewParams{
		RecentYear:      RecentYear,
		ComparisonYear:  ComparisonYear,
		ReferenceIncome: ReferenceMedianIncome,
	}
}

// Overview holds the dashboard's headline affordability metrics.
type Overview struct {
	RecentMedianPrice      *float64 `json:"recentMedianPrice"`
	ComparisonMedianPrice  *float64 `json:"comparisonMedianPrice"`
	PriceChangePct         *float64 `json:"priceChangePct"`
	AffordabilityGap       *float64 `json:"affordabilityGap"`
	AffordableSharePct     *float64 `json:"affordableSharePct"`
	RequiredIncome         *float64 `json:"requiredIncome"`
	RequiredIncomeMultiple *float64 `json:"requiredIncomeMultiple"`
	RecentYear             int      `json:"recentYear"`
	ComparisonYear         int      `json:"comparisonYear"`
	AffordableSales        int      `json:"affordableSales"`
	SalesSinceComparison   int      `json:"salesSinceComparison"`
	ReferenceIncome        float64  `json:"referenceIncome"`
	AffordablePrice        float64  `json:"affordablePrice"`
}

// BuildOverview computes the headline metrics from normalized sales.
func BuildOverview(sales []models.SaleRecord, p OverviewParams) Overview {
	affordable := AffordablePrice(p.ReferenceIncome)
	recent := MedianSince(sales, p.RecentYear)
	older := MedianSince(sales, p.ComparisonYear)
	share, affordableCount, total := AffordableShare(sales, p.ComparisonYear, affordable)
	required := RequiredIncome(recent)

	return Overview{
		RecentYear:             p.RecentYear,
		ComparisonYear:         p.ComparisonYear,
		RecentMedianPrice:      recent,
		ComparisonMedianPrice:  older,
		PriceChangePct:         PercentChange(older, recent),
		ReferenceIncome:        p.ReferenceIncome,
		AffordablePrice:        affordable,
		AffordabilityGap:       AffordabilityGap(recent, &affordable),
		AffordableSharePct:     share,
		AffordableSales:        affordableCount,
		SalesSinceComparison:   total,
		RequiredIncome:         required,
		RequiredIncomeMultiple: Ratio(required, &p.ReferenceIncome),
	}
}

// TrendParams selects the endpoints of the long-run comparisons.
type TrendParams struct {
	StartYear      int `json:"startYear"`
	RecentYear     int `json:"recentYear"`
	ComparisonYear int `json:"comparisonYear"`
	BaselineYear   int `json:"baselineYear"`
}

// DefaultTrendParams compares 2000, 2020 and 2021 against 2024.
func DefaultTrendParams() TrendParams {
	return TrendParams{
		StartYear:      DefaultMinYear,
		RecentYear:     RecentYear,
		ComparisonYear: ComparisonYear,
		BaselineYear:   BaselineYear,
	}
}

// Trends holds the long-run change figures quoted alongside the charts.
type Trends struct {
	StartMedianPrice         *float64    `json:"startMedianPrice"`
	RecentMedianPrice        *float64    `json:"recentMedianPrice"`
	TotalIncreasePct         *float64    `json:"totalIncreasePct"`
	ComparisonMedianPrice    *float64    `json:"comparisonMedianPrice"`
	RecentIncreasePct        *float64    `json:"recentIncreasePct"`
	BaselineAssessmentMedian *float64    `json:"baselineAssessmentMedian"`
	LatestAssessmentYear     *int        `json:"latestAssessmentYear"`
	LatestAssessmentMedian   *float64    `json:"latestAssessmentMedian"`
	AssessmentIncreasePct    *float64    `json:"assessmentIncreasePct"`
	BaselineSalesVolume      *int        `json:"baselineSalesVolume"`
	RecentSalesVolume        *int        `json:"recentSalesVolume"`
	SalesVolumeChangePct     *float64    `json:"salesVolumeChangePct"`
	Params                   TrendParams `json:"params"`
}

func medianFor(stats []models.YearlyStat, year int) *float64 {
	if s, ok := FindYear(stats, year); ok {
		return ptr(s.MedianPrice)
	}
	return nil
}

func volumeFor(volume []models.YearCount, year int) *int {
	if c, ok := FindVolume(volume, year); ok {
		return &c
	}
	return nil
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	return ptr(float64(*v))
}

// BuildTrends derives the long-run comparisons from already aggregated
// series. A comparison whose endpoint year is missing is nil.
func BuildTrends(yearly []models.YearlyStat, assessments []models.AssessmentYearStat, volume []models.YearCount, p TrendParams) Trends {
	t := Trends{Params: p}

	t.StartMedianPrice = medianFor(yearly, p.StartYear)
	t.RecentMedianPrice = medianFor(yearly, p.RecentYear)
	t.ComparisonMedianPrice = medianFor(yearly, p.ComparisonYear)
	t.TotalIncreasePct = PercentChange(t.StartMedianPrice, t.RecentMedianPrice)
	t.RecentIncreasePct = PercentChange(t.ComparisonMedianPrice, t.RecentMedianPrice)

	if s, ok := FindAssessmentYear(assessments, p.BaselineYear); ok {
		t.BaselineAssessmentMedian = ptr(s.MedianValue)
	}
	if n := len(assessments); n > 0 {
		latest := assessments[n-1]
		t.LatestAssessmentYear = &latest.Year
		t.LatestAssessmentMedian = ptr(latest.MedianValue)
	}
	t.AssessmentIncreasePct = PercentChange(t.BaselineAssessmentMedian, t.LatestAssessmentMedian)

	t.BaselineSalesVolume = volumeFor(volume, p.BaselineYear)
	t.RecentSalesVolume = volumeFor(volume, p.RecentYear)
	t.SalesVolumeChangePct = PercentChange(intToFloat(t.BaselineSalesVolume), intToFloat(t.RecentSalesVolume))

	return t
}

// IncomeGroupAffordability compares one household group's income against
// the median home price of the reference year.
type IncomeGroupAffordability struct {
	RequiredIncome  *float64 `json:"requiredIncome"`
	IncomeMultiple  *float64 `json:"incomeMultiple"`
	AffordGap       *float64 `json:"affordabilityGap"`
	Name            string   `json:"name"`
	MedianIncome    float64  `json:"medianIncome"`
	AffordablePrice float64  `json:"affordablePrice"`
}

// IncomeDisparity computes affordability for each group against
// referenceMedianPrice, which may be nil when the reference year has no sales.
func IncomeDisparity(groups []IncomeGroup, referenceMedianPrice *float64) []IncomeGroupAffordability {
	required := RequiredIncome(referenceMedianPrice)

	out := make([]IncomeGroupAffordability, 0, len(groups))
	for _, g := range groups {
		affordable := AffordablePrice(g.MedianIncome)
		inc := g.MedianIncome
		out = append(out, IncomeGroupAffordability{
			Name:            g.Name,
			MedianIncome:    g.MedianIncome,
			AffordablePrice: affordable,
			RequiredIncome:  required,
			IncomeMultiple:  Ratio(required, &inc),
			AffordGap:       AffordabilityGap(referenceMedianPrice, &affordable),
		})
	}
	return out
}
