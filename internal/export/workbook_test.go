package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/dataset"
	"github.com/stwalsh4118/housing/internal/models"
	"github.com/stwalsh4118/housing/internal/services"
	"github.com/xuri/excelize/v2"
)

func f64(v float64) *float64 { return &v }

func testReport() *services.Report {
	return &services.Report{
		Dataset: &services.DatasetInfo{
			LoadedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			Version:  "v1",
			Source:   "csv",
			Stats:    dataset.LoadStats{MarketSales: 6},
		},
		Overview: &analytics.Overview{
			RecentYear:        2024,
			ComparisonYear:    2020,
			RecentMedianPrice: f64(550000),
			AffordablePrice:   209487,
		},
		YearlySales: []models.YearlyStat{
			{Year: 2023, SaleCount: 1, MedianPrice: 450000, MeanPrice: 450000, Percentile75: 450000, MedianIncome: f64(69829), AffordablePrice: f64(209487)},
			{Year: 2024, SaleCount: 2, MedianPrice: 550000, MeanPrice: 550000, Percentile75: 575000},
		},
		Volume:      []models.YearCount{{Year: 2023, Count: 1}, {Year: 2024, Count: 2}},
		Assessments: []models.AssessmentYearStat{{Year: 2024, Count: 3, MedianValue: 260000, MeanValue: 246666.5}},
		Disparity: &services.Disparity{
			ReferenceYear: 2023,
			Groups:        []analytics.IncomeGroupAffordability{{Name: "Group", MedianIncome: 50000, AffordablePrice: 150000}},
		},
		TopOwners: &services.OwnerRanking{
			Owners: []models.OwnerAggregate{{OwnerName: "B", TotalProperties: 2, TotalAcres: 2.5}},
		},
	}
}

func openWorkbook(t *testing.T, report *services.Report) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	// Arrange & Act
	f := openWorkbook(t, testReport())

	// Assert
	assert.Equal(t, Sheets, f.GetSheetList())
}

func TestWriteWorkbook_YearlySales(t *testing.T) {
	f := openWorkbook(t, testReport())

	rows, err := f.GetRows(SheetYearlySales)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "Year", rows[0][0])
	assert.Equal(t, []string{"2023", "1", "450000", "450000", "450000", "69829", "209487"}, rows[1])
	// 2024 has no income, so the trailing cells stay empty.
	assert.Equal(t, []string{"2024", "2", "550000", "550000", "575000"}, rows[2])
}

func TestWriteWorkbook_OwnersAndSummary(t *testing.T) {
	f := openWorkbook(t, testReport())

	owners, err := f.GetRows(SheetOwners)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "B", owners[1][0])
	assert.Equal(t, "2", owners[1][1])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	values := map[string]string{}
	for _, row := range summary[1:] {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	assert.Equal(t, "v1", values["Dataset version"])
	assert.Equal(t, "550000", values["Median price since 2024"])
	assert.Equal(t, "2025-01-02 03:04:05", values["Loaded at"])
	_, defined := values["Median price since 2020"]
	assert.False(t, defined, "undefined figures are left blank")
}

func TestWriteWorkbook_EmptyReport(t *testing.T) {
	f := openWorkbook(t, &services.Report{})

	for _, sheet := range Sheets {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		assert.Len(t, rows, 1, "sheet %s holds only its header", sheet)
	}
}
