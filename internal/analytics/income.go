package analytics

// IncomeTable maps a year to the median household income for that year.
// A year present with a nil value is known to be unpublished, which is
// different from zero income.
type IncomeTable map[int]*float64

// Lookup returns the income for year. ok is false when the year is missing
// or unpublished.
func (t IncomeTable) Lookup(year int) (income float64, ok bool) {
	v, found := t[year]
	if !found || v == nil {
		return 0, false
	}
	return *v, true
}

func income(v float64) *float64 { return &v }

// DefaultIncomeTable returns Charlottesville median household income by
// year, 2000 through 2023. 2024 has not been published yet.
func DefaultIncomeTable() IncomeTable {
	return IncomeTable{
		2000: income(32903), 2001: income(33223), 2002: income(32785), 2003: income(31363),
		2004: income(31246), 2005: income(33041), 2006: income(35147), 2007: income(37195),
		2008: income(42948), 2009: income(39030), 2010: income(42240), 2011: income(43980),
		2012: income(44535), 2013: income(44601), 2014: income(47218), 2015: income(49775),
		2016: income(50727), 2017: income(54739), 2018: income(58933), 2019: income(59471),
		2020: income(59598), 2021: income(63470), 2022: income(67177), 2023: income(ReferenceMedianIncome),
		2024: nil,
	}
}

// IncomeGroup is a household group with its median income.
type IncomeGroup struct {
	Name         string  `json:"name"`
	MedianIncome float64 `json:"medianIncome"`
}

// DefaultIncomeGroups returns 2023 Census median household incomes by race.
func DefaultIncomeGroups() []IncomeGroup {
	return []IncomeGroup{
		{Name: "Black Families", MedianIncome: 36541},
		{Name: "White Families", MedianIncome: 86259},
	}
}
