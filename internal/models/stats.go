package models

// YearlyStat summarizes one calendar year of market sales.
// MedianIncome and AffordablePrice are nil when no income figure is
// published for the year.
type YearlyStat struct {
	MedianIncome    *float64 `json:"medianIncome"`
	AffordablePrice *float64 `json:"affordablePrice"`
	Year            int      `json:"year"`
	SaleCount       int      `json:"saleCount"`
	MedianPrice     float64  `json:"medianPrice"`
	MeanPrice       float64  `json:"meanPrice"`
	Percentile75    float64  `json:"percentile75"`
}

// AssessmentYearStat summarizes one tax year of assessments.
type AssessmentYearStat struct {
	Year        int     `json:"year"`
	Count       int     `json:"count"`
	MedianValue float64 `json:"medianValue"`
	MeanValue   float64 `json:"meanValue"`
}

// YearCount is the number of sales recorded in a year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// OwnerAggregate totals every parcel recorded under one owner name.
type OwnerAggregate struct {
	OwnerName       string  `json:"ownerName"`
	TotalProperties int     `json:"totalProperties"`
	TotalSquareFeet float64 `json:"totalSquareFeet"`
	TotalAssessment float64 `json:"totalAssessment"`
	TotalAcres      float64 `json:"totalAcres"`
}
