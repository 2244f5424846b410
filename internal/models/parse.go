package models

import (
	"math"
	"strconv"
	"strings"
)

// ParseFinite parses a decimal cell. NaN and infinities are rejected.
func ParseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseYear accepts "2021" as well as "2021.0" as written by spreadsheet exports.
func ParseYear(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if y, err := strconv.Atoi(raw); err == nil {
		return y, true
	}
	f, ok := ParseFinite(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseAssessment builds an assessment from text cells. ok is false when the
// tax year or total value is missing or not a finite number.
func ParseAssessment(parcelNumber, taxYear, totalValue, streetNumber, streetName string) (AssessmentRecord, bool) {
	year, ok := ParseYear(taxYear)
	if !ok {
		return AssessmentRecord{}, false
	}
	value, ok := ParseFinite(totalValue)
	if !ok {
		return AssessmentRecord{}, false
	}
	return AssessmentRecord{
		ParcelNumber: strings.TrimSpace(parcelNumber),
		TaxYear:      year,
		TotalValue:   value,
		StreetNumber: streetNumber,
		StreetName:   streetName,
	}, true
}

// ParseParcel builds a parcel from text cells. A blank lot size counts as
// zero and a blank or whitespace-only city/state is missing. ok is false when
// the lot size is present but not a finite number. An unparsable assessment
// is treated as missing.
func ParseParcel(parcelNumber, ownerName, ownerCityState, lotSquareFeet, assessment string) (ParcelRecord, bool) {
	p := ParcelRecord{
		ParcelNumber: strings.TrimSpace(parcelNumber),
		OwnerName:    ownerName,
	}

	if raw := strings.TrimSpace(lotSquareFeet); raw != "" {
		v, ok := ParseFinite(raw)
		if !ok {
			return ParcelRecord{}, false
		}
		p.LotSquareFeet = v
	}

	if strings.TrimSpace(ownerCityState) != "" {
		cs := ownerCityState
		p.OwnerCityState = &cs
	}

	if strings.TrimSpace(assessment) != "" {
		if v, ok := ParseFinite(assessment); ok {
			p.Assessment = &v
		}
	}

	return p, true
}
