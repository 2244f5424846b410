// Package export writes the housing analysis as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/stwalsh4118/housing/internal/services"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetYearlySales = "Yearly Sales"
	SheetVolume      = "Sales Volume"
	SheetAssessments = "Assessments"
	SheetDisparity   = "Income Disparity"
	SheetOwners      = "Top Owners"
)

// Sheets lists every sheet WriteWorkbook produces.
var Sheets = []string{SheetSummary, SheetYearlySales, SheetVolume, SheetAssessments, SheetDisparity, SheetOwners}

// value turns an undefined figure into an empty cell.
func value(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// WriteWorkbook renders report as an .xlsx workbook into w.
func WriteWorkbook(w io.Writer, report *services.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}
	for _, name := range Sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
	}

	writers := []struct {
		sheet string
		rows  [][]interface{}
	}{
		{SheetSummary, summaryRows(report)},
		{SheetYearlySales, yearlySalesRows(report)},
		{SheetVolume, volumeRows(report)},
		{SheetAssessments, assessmentRows(report)},
		{SheetDisparity, disparityRows(report)},
		{SheetOwners, ownerRows(report)},
	}
	for _, sw := range writers {
		if err := writeRows(f, sw.sheet, sw.rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Metric", "Value"}}
	if r.Dataset != nil {
		rows = append(rows,
			[]interface{}{"Dataset version", r.Dataset.Version},
			[]interface{}{"Dataset source", r.Dataset.Source},
			[]interface{}{"Loaded at", r.Dataset.LoadedAt.UTC().Format("2006-01-02 15:04:05")},
			[]interface{}{"Market sales", r.Dataset.Stats.MarketSales},
		)
	}
	if o := r.Overview; o != nil {
		rows = append(rows,
			[]interface{}{fmt.Sprintf("Median price since %d", o.RecentYear), value(o.RecentMedianPrice)},
			[]interface{}{fmt.Sprintf("Median price since %d", o.ComparisonYear), value(o.ComparisonMedianPrice)},
			[]interface{}{"Price change %", value(o.PriceChangePct)},
			[]interface{}{"Reference income", o.ReferenceIncome},
			[]interface{}{"Affordable price", o.AffordablePrice},
			[]interface{}{"Affordability gap", value(o.AffordabilityGap)},
			[]interface{}{"Affordable share %", value(o.AffordableSharePct)},
			[]interface{}{"Required income", value(o.RequiredIncome)},
		)
	}
	if t := r.Trends; t != nil {
		rows = append(rows,
			[]interface{}{fmt.Sprintf("Price increase since %d %%", t.Params.StartYear), value(t.TotalIncreasePct)},
			[]interface{}{fmt.Sprintf("Price increase since %d %%", t.Params.ComparisonYear), value(t.RecentIncreasePct)},
			[]interface{}{fmt.Sprintf("Assessment increase since %d %%", t.Params.BaselineYear), value(t.AssessmentIncreasePct)},
			[]interface{}{"Latest assessment year", intValue(t.LatestAssessmentYear)},
			[]interface{}{"Sales volume change %", value(t.SalesVolumeChangePct)},
		)
	}
	if s := r.Ownership; s != nil {
		rows = append(rows,
			[]interface{}{"Parcels", s.TotalParcels},
			[]interface{}{"Local owner %", value(s.LocalPct)},
			[]interface{}{"Non-local owner %", value(s.NonLocalPct)},
			[]interface{}{"Non-local land %", value(s.NonLocalLandPct)},
			[]interface{}{"Non-local acres", s.NonLocalLandAcres},
		)
	}
	return rows
}

func yearlySalesRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Year", "Sales", "Median Price", "Mean Price", "75th Percentile", "Median Income", "Affordable Price"}}
	for _, s := range r.YearlySales {
		rows = append(rows, []interface{}{
			s.Year, s.SaleCount, s.MedianPrice, s.MeanPrice, s.Percentile75,
			value(s.MedianIncome), value(s.AffordablePrice),
		})
	}
	return rows
}

func volumeRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Year", "Sales"}}
	for _, v := range r.Volume {
		rows = append(rows, []interface{}{v.Year, v.Count})
	}
	return rows
}

func assessmentRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Tax Year", "Parcels", "Median Value", "Mean Value"}}
	for _, a := range r.Assessments {
		rows = append(rows, []interface{}{a.Year, a.Count, a.MedianValue, a.MeanValue})
	}
	return rows
}

func disparityRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Group", "Median Income", "Affordable Price", "Required Income", "Income Multiple", "Affordability Gap"}}
	if r.Disparity == nil {
		return rows
	}
	for _, g := range r.Disparity.Groups {
		rows = append(rows, []interface{}{
			g.Name, g.MedianIncome, g.AffordablePrice,
			value(g.RequiredIncome), value(g.IncomeMultiple), value(g.AffordGap),
		})
	}
	return rows
}

func ownerRows(r *services.Report) [][]interface{} {
	rows := [][]interface{}{{"Owner", "Properties", "Acres", "Square Feet", "Assessment"}}
	if r.TopOwners == nil {
		return rows
	}
	for _, o := range r.TopOwners.Owners {
		rows = append(rows, []interface{}{o.OwnerName, o.TotalProperties, o.TotalAcres, o.TotalSquareFeet, o.TotalAssessment})
	}
	return rows
}
