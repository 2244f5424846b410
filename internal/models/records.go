package models

import (
	"strings"
	"time"
)

// RawSale is a sales row exactly as read from the source, before any parsing.
// Date and amount stay strings so that unparsable rows can be dropped by the
// normalizer rather than failing the load.
type RawSale struct {
	ParcelNumber string `json:"parcelNumber"`
	SaleDate     string `json:"saleDate"`
	SaleAmount   string `json:"saleAmount"`
}

// SaleRecord is a validated market sale.
// SaleAmount is always above the non-market floor.
type SaleRecord struct {
	SaleDate     time.Time `json:"saleDate"`
	ParcelNumber string    `json:"parcelNumber"`
	SaleAmount   float64   `json:"saleAmount"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
}

// AssessmentRecord is one parcel's assessment for one tax year.
type AssessmentRecord struct {
	ParcelNumber string  `json:"parcelNumber"`
	StreetNumber string  `json:"streetNumber"`
	StreetName   string  `json:"streetName"`
	TotalValue   float64 `json:"totalValue"`
	TaxYear      int     `json:"taxYear"`
}

// FullAddress joins street number and street name and upper-cases the result.
func (a AssessmentRecord) FullAddress() string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimSpace(a.StreetNumber) + " " + strings.TrimSpace(a.StreetName)))
}

// ParcelRecord is a parcel with its recorded owner.
// Nullable fields use pointers to distinguish a missing value from a zero value.
type ParcelRecord struct {
	OwnerCityState *string  `json:"ownerCityState,omitempty"`
	Assessment     *float64 `json:"assessment,omitempty"`
	ParcelNumber   string   `json:"parcelNumber"`
	OwnerName      string   `json:"ownerName"`
	LotSquareFeet  float64  `json:"lotSquareFeet"`
}
