// Package report renders the housing analysis as terminal tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/services"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Undefined is printed for figures that cannot be computed.
const Undefined = "n/a"

var printer = message.NewPrinter(language.English)

// Money formats a dollar amount with thousands separators.
func Money(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// MoneyPtr is Money for a figure that may be undefined.
func MoneyPtr(v *float64) string {
	if v == nil {
		return Undefined
	}
	return Money(*v)
}

// Pct formats a percentage with one decimal.
func Pct(v *float64) string {
	if v == nil {
		return Undefined
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// Count formats an integer with thousands separators.
func Count(v int) string {
	return printer.Sprintf("%d", v)
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

// Summary writes the overview, trend, yearly, ownership and owner tables.
func Summary(w io.Writer, r *services.Report) {
	if r.Dataset != nil {
		_, _ = fmt.Fprintf(w, "Dataset %s (%s), loaded %s, %s market sales\n\n",
			r.Dataset.Version, r.Dataset.Source,
			r.Dataset.LoadedAt.Format("2006-01-02 15:04:05"), Count(r.Dataset.Stats.MarketSales))
	}

	if o := r.Overview; o != nil {
		t := newTable(w, "Overview")
		t.AppendHeader(table.Row{"Metric", "Value"})
		t.AppendRows([]table.Row{
			{fmt.Sprintf("Median price since %d", o.RecentYear), MoneyPtr(o.RecentMedianPrice)},
			{fmt.Sprintf("Median price since %d", o.ComparisonYear), MoneyPtr(o.ComparisonMedianPrice)},
			{"Price change", Pct(o.PriceChangePct)},
			{"Affordable price", Money(o.AffordablePrice)},
			{"Affordability gap", MoneyPtr(o.AffordabilityGap)},
			{"Affordable share", Pct(o.AffordableSharePct)},
			{"Required income", MoneyPtr(o.RequiredIncome)},
		})
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	if tr := r.Trends; tr != nil {
		t := newTable(w, "Trends")
		t.AppendHeader(table.Row{"Comparison", "Change"})
		t.AppendRows([]table.Row{
			{fmt.Sprintf("Median price %d to %d", tr.Params.StartYear, tr.Params.RecentYear), Pct(tr.TotalIncreasePct)},
			{fmt.Sprintf("Median price %d to %d", tr.Params.ComparisonYear, tr.Params.RecentYear), Pct(tr.RecentIncreasePct)},
			{fmt.Sprintf("Median assessment since %d", tr.Params.BaselineYear), Pct(tr.AssessmentIncreasePct)},
			{fmt.Sprintf("Sales volume %d to %d", tr.Params.BaselineYear, tr.Params.RecentYear), Pct(tr.SalesVolumeChangePct)},
		})
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	if len(r.YearlySales) > 0 {
		t := newTable(w, "Sales by Year")
		t.AppendHeader(table.Row{"Year", "Sales", "Median", "Mean", "75th Pct", "Affordable"})
		for _, s := range r.YearlySales {
			t.AppendRow(table.Row{s.Year, Count(s.SaleCount), Money(s.MedianPrice), Money(s.MeanPrice), Money(s.Percentile75), MoneyPtr(s.AffordablePrice)})
		}
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	if d := r.Disparity; d != nil {
		t := newTable(w, fmt.Sprintf("Income Disparity (%d median %s)", d.ReferenceYear, MoneyPtr(d.ReferenceMedianPrice)))
		t.AppendHeader(table.Row{"Group", "Median Income", "Affordable", "Gap"})
		for _, g := range d.Groups {
			t.AppendRow(table.Row{g.Name, Money(g.MedianIncome), Money(g.AffordablePrice), MoneyPtr(g.AffordGap)})
		}
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	if s := r.Ownership; s != nil {
		t := newTable(w, "Ownership")
		t.AppendHeader(table.Row{"", "Local", "Non-local"})
		t.AppendRows([]table.Row{
			{"Parcels", Count(s.LocalParcels), Count(s.NonLocalParcels)},
			{"Share", Pct(s.LocalPct), Pct(s.NonLocalPct)},
			{"Land share", Pct(s.LocalLandPct), Pct(s.NonLocalLandPct)},
		})
		t.AppendFooter(table.Row{"Excluded", Count(s.ExcludedParcels), ""})
		t.Render()
		_, _ = fmt.Fprintln(w)
	}

	if o := r.TopOwners; o != nil {
		Owners(w, o)
	}
}

// Owners writes an owner ranking.
func Owners(w io.Writer, ranking *services.OwnerRanking) {
	t := newTable(w, fmt.Sprintf("Top Owners by %s", ranking.Sort))
	t.AppendHeader(table.Row{"#", "Owner", "Properties", "Acres", "Assessment"})
	for i, o := range ranking.Owners {
		assessment := Money(o.TotalAssessment)
		if !ranking.AssessmentTracked {
			assessment = Undefined
		}
		t.AppendRow(table.Row{i + 1, o.OwnerName, Count(o.TotalProperties), fmt.Sprintf("%.2f", o.TotalAcres), assessment})
	}
	t.Render()
}

// Lookup writes a property search result and, when resolved, the parcel's
// assessment history.
func Lookup(w io.Writer, lookup *services.PropertyLookup) {
	res := lookup.Search
	switch res.Status {
	case analytics.SearchNone:
		_, _ = fmt.Fprintf(w, "No properties match %q\n", res.Query)
		return
	case analytics.SearchMultiple:
		if lookup.History == nil {
			t := newTable(w, fmt.Sprintf("%d properties match %q", len(res.Matches), res.Query))
			t.AppendHeader(table.Row{"Parcel", "Address"})
			for _, m := range res.Matches {
				t.AppendRow(table.Row{m.ParcelNumber, m.FullAddress})
			}
			t.Render()
			_, _ = fmt.Fprintln(w, "Pass --parcel to choose one.")
			return
		}
	}

	if lookup.History != nil {
		History(w, lookup.History)
	}
}

// History writes one parcel's assessments and the change since the baseline year.
func History(w io.Writer, h *analytics.PropertyHistory) {
	t := newTable(w, fmt.Sprintf("%s (parcel %s)", h.FullAddress, h.ParcelNumber))
	t.AppendHeader(table.Row{"Tax Year", "Assessed Value"})
	for _, rec := range h.Records {
		t.AppendRow(table.Row{rec.TaxYear, Money(rec.TotalValue)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("Since %d", h.BaselineYear), fmt.Sprintf("%s (%s)", MoneyPtr(h.ChangeSinceBaseline), Pct(h.PctChangeSinceBaseline))})
	t.Render()
}
