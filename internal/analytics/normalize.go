package analytics

import (
	"strings"
	"time"

	"github.com/stwalsh4118/housing/internal/models"
)

// NormalizeResult is the output of NormalizeSales.
type NormalizeResult struct {
	Sales []models.SaleRecord `json:"-"`
	// DroppedUnparsable counts rows whose date or amount could not be parsed.
	DroppedUnparsable int `json:"droppedUnparsable"`
	// DroppedNonMarket counts rows at or below NonMarketFloor.
	DroppedNonMarket int `json:"droppedNonMarket"`
}

// Kept returns the number of sales that survived normalization.
func (r NormalizeResult) Kept() int {
	return len(r.Sales)
}

// NormalizeSales parses raw sales rows into SaleRecords. Rows with an
// unparsable date or amount and rows at or below the non-market floor are
// dropped and counted; the remaining rows keep their input order.
func NormalizeSales(rows []models.RawSale) NormalizeResult {
	result := NormalizeResult{
		Sales: make([]models.SaleRecord, 0, len(rows)),
	}

	for _, row := range rows {
		date, err := time.Parse(SaleDateLayout, strings.TrimSpace(row.SaleDate))
		if err != nil {
			result.DroppedUnparsable++
			continue
		}

		amount, ok := models.ParseFinite(row.SaleAmount)
		if !ok {
			result.DroppedUnparsable++
			continue
		}

		if amount <= NonMarketFloor {
			result.DroppedNonMarket++
			continue
		}

		result.Sales = append(result.Sales, models.SaleRecord{
			ParcelNumber: row.ParcelNumber,
			SaleDate:     date,
			SaleAmount:   amount,
			Year:         date.Year(),
			Month:        int(date.Month()),
		})
	}

	return result
}
