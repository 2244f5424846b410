package analytics

import (
	"errors"
	"sort"
	"strings"

	"github.com/stwalsh4118/housing/internal/models"
)

// Search resolution errors.
var (
	ErrNoMatch           = errors.New("no property matches the search")
	ErrSelectionRequired = errors.New("several properties match; a selection is required")
	ErrNotInResults      = errors.New("selected parcel is not among the search results")
)

// SearchStatus describes how many distinct addresses a search matched.
type SearchStatus string

// Search outcomes.
const (
	SearchNone     SearchStatus = "none"
	SearchSingle   SearchStatus = "single"
	SearchMultiple SearchStatus = "multiple"
)

// AddressMatch is a distinct parcel/address pair returned by a search.
type AddressMatch struct {
	ParcelNumber string `json:"parcelNumber"`
	FullAddress  string `json:"fullAddress"`
}

// SearchResult lists the matches for a query.
// Selected is set only when exactly one address matched.
type SearchResult struct {
	Selected          *AddressMatch  `json:"selected,omitempty"`
	Query             string         `json:"query"`
	Status            SearchStatus   `json:"status"`
	Matches           []AddressMatch `json:"matches"`
	RequiresSelection bool           `json:"requiresSelection"`
}

// Resolve picks the parcel to show history for. A single match resolves on
// its own; several matches need parcelNumber to name one of them.
func (r SearchResult) Resolve(parcelNumber string) (AddressMatch, error) {
	switch r.Status {
	case SearchNone:
		return AddressMatch{}, ErrNoMatch
	case SearchSingle:
		if parcelNumber == "" || parcelNumber == r.Selected.ParcelNumber {
			return *r.Selected, nil
		}
		return AddressMatch{}, ErrNotInResults
	}

	if parcelNumber == "" {
		return AddressMatch{}, ErrSelectionRequired
	}
	for _, m := range r.Matches {
		if m.ParcelNumber == parcelNumber {
			return m, nil
		}
	}
	return AddressMatch{}, ErrNotInResults
}

// PropertyHistory is every assessment recorded for one parcel.
type PropertyHistory struct {
	Latest                 *models.AssessmentRecord  `json:"latest"`
	Baseline               *models.AssessmentRecord  `json:"baseline"`
	ChangeSinceBaseline    *float64                  `json:"changeSinceBaseline"`
	PctChangeSinceBaseline *float64                  `json:"pctChangeSinceBaseline"`
	ParcelNumber           string                    `json:"parcelNumber"`
	FullAddress            string                    `json:"fullAddress"`
	Records                []models.AssessmentRecord `json:"records"`
	BaselineYear           int                       `json:"baselineYear"`
}

type indexEntry struct {
	fullAddress string
	streetName  string
	record      int
}

// PropertyIndex answers address searches and parcel history lookups over
// one set of assessment records. It is read-only after construction and
// safe for concurrent use.
type PropertyIndex struct {
	records  []models.AssessmentRecord
	entries  []indexEntry
	byParcel map[string][]int
}

// NewPropertyIndex derives the searchable address of every record and
// groups records by parcel in ascending tax-year order.
func NewPropertyIndex(records []models.AssessmentRecord) *PropertyIndex {
	idx := &PropertyIndex{
		records:  records,
		entries:  make([]indexEntry, len(records)),
		byParcel: make(map[string][]int),
	}

	for i, r := range records {
		idx.entries[i] = indexEntry{
			fullAddress: r.FullAddress(),
			streetName:  strings.ToUpper(strings.TrimSpace(r.StreetName)),
			record:      i,
		}
		idx.byParcel[r.ParcelNumber] = append(idx.byParcel[r.ParcelNumber], i)
	}

	for _, rows := range idx.byParcel {
		sort.SliceStable(rows, func(a, b int) bool {
			return records[rows[a]].TaxYear < records[rows[b]].TaxYear
		})
	}

	return idx
}

// Search matches the query, case-insensitively, as a substring of either the
// full address or the street name. Matches are distinct parcel/address pairs
// in the order first seen.
func (idx *PropertyIndex) Search(query string) SearchResult {
	q := strings.ToUpper(strings.TrimSpace(query))
	result := SearchResult{
		Query:   query,
		Status:  SearchNone,
		Matches: []AddressMatch{},
	}
	if q == "" {
		return result
	}

	seen := make(map[AddressMatch]struct{})
	for _, e := range idx.entries {
		if !strings.Contains(e.fullAddress, q) && !strings.Contains(e.streetName, q) {
			continue
		}
		m := AddressMatch{
			ParcelNumber: idx.records[e.record].ParcelNumber,
			FullAddress:  e.fullAddress,
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		result.Matches = append(result.Matches, m)
	}

	switch len(result.Matches) {
	case 0:
	case 1:
		result.Status = SearchSingle
		selected := result.Matches[0]
		result.Selected = &selected
	default:
		result.Status = SearchMultiple
		result.RequiresSelection = true
	}

	return result
}

// History returns the parcel's records ordered by tax year along with the
// change since baselineYear. The change is nil when the parcel has no record
// for baselineYear. ok is false for an unknown parcel.
func (idx *PropertyIndex) History(parcelNumber string, baselineYear int) (PropertyHistory, bool) {
	rows, ok := idx.byParcel[parcelNumber]
	if !ok || len(rows) == 0 {
		return PropertyHistory{}, false
	}

	h := PropertyHistory{
		ParcelNumber: parcelNumber,
		BaselineYear: baselineYear,
		Records:      make([]models.AssessmentRecord, 0, len(rows)),
	}
	for _, i := range rows {
		h.Records = append(h.Records, idx.records[i])
	}

	latest := h.Records[len(h.Records)-1]
	h.Latest = &latest
	h.FullAddress = latest.FullAddress()

	for _, r := range h.Records {
		if r.TaxYear == baselineYear {
			baseline := r
			h.Baseline = &baseline
			break
		}
	}
	if h.Baseline != nil {
		change := latest.TotalValue - h.Baseline.TotalValue
		h.ChangeSinceBaseline = &change
		h.PctChangeSinceBaseline = PercentChange(&h.Baseline.TotalValue, &latest.TotalValue)
	}

	return h, true
}

// Len returns the number of indexed records.
func (idx *PropertyIndex) Len() int {
	return len(idx.records)
}
