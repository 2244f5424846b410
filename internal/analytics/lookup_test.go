package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/housing/internal/models"
)

func testAssessments() []models.AssessmentRecord {
	return []models.AssessmentRecord{
		{ParcelNumber: "100", StreetNumber: "123", StreetName: "Main St", TaxYear: 2024, TotalValue: 260000},
		{ParcelNumber: "101", StreetNumber: "45", StreetName: "Main St", TaxYear: 2024, TotalValue: 300000},
		{ParcelNumber: "102", StreetNumber: "7", StreetName: "Oak Ave", TaxYear: 2024, TotalValue: 180000},
		{ParcelNumber: "100", StreetNumber: "123", StreetName: "Main St", TaxYear: 2021, TotalValue: 200000},
		{ParcelNumber: "100", StreetNumber: "123", StreetName: "Main St", TaxYear: 2022, TotalValue: 220000},
	}
}

func TestPropertyIndex_Search(t *testing.T) {
	idx := NewPropertyIndex(testAssessments())

	t.Run("substring matches distinct addresses", func(t *testing.T) {
		result := idx.Search("MAIN")

		assert.Equal(t, SearchMultiple, result.Status)
		assert.True(t, result.RequiresSelection)
		assert.Nil(t, result.Selected)
		assert.Equal(t, []AddressMatch{
			{ParcelNumber: "100", FullAddress: "123 MAIN ST"},
			{ParcelNumber: "101", FullAddress: "45 MAIN ST"},
		}, result.Matches)
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, idx.Search("MAIN").Matches, idx.Search("  main ").Matches)
	})

	t.Run("single match selects itself", func(t *testing.T) {
		result := idx.Search("oak")

		assert.Equal(t, SearchSingle, result.Status)
		assert.False(t, result.RequiresSelection)
		require.NotNil(t, result.Selected)
		assert.Equal(t, "102", result.Selected.ParcelNumber)
		assert.Equal(t, "7 OAK AVE", result.Selected.FullAddress)
	})

	t.Run("full address match", func(t *testing.T) {
		result := idx.Search("123 main")

		require.Len(t, result.Matches, 1)
		assert.Equal(t, "100", result.Matches[0].ParcelNumber)
	})

	t.Run("no match", func(t *testing.T) {
		result := idx.Search("ELM")

		assert.Equal(t, SearchNone, result.Status)
		assert.NotNil(t, result.Matches)
		assert.Empty(t, result.Matches)
	})

	t.Run("blank query matches nothing", func(t *testing.T) {
		assert.Equal(t, SearchNone, idx.Search("   ").Status)
	})
}

func TestSearchResult_Resolve(t *testing.T) {
	idx := NewPropertyIndex(testAssessments())

	tests := []struct {
		name       string
		query      string
		parcel     string
		wantParcel string
		wantErr    error
	}{
		{"single match resolves without selection", "oak", "", "102", nil},
		{"single match with its own parcel", "oak", "102", "102", nil},
		{"single match with another parcel", "oak", "100", "", ErrNotInResults},
		{"multiple matches need selection", "main", "", "", ErrSelectionRequired},
		{"multiple matches with selection", "main", "101", "101", nil},
		{"selection outside results", "main", "102", "", ErrNotInResults},
		{"no match", "elm", "", "", ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := idx.Search(tt.query).Resolve(tt.parcel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantParcel, match.ParcelNumber)
		})
	}
}

func TestPropertyIndex_History(t *testing.T) {
	// Arrange
	idx := NewPropertyIndex(testAssessments())

	// Act
	h, ok := idx.History("100", BaselineYear)

	// Assert
	require.True(t, ok)
	assert.Equal(t, "123 MAIN ST", h.FullAddress)
	require.Len(t, h.Records, 3)
	assert.Equal(t, []int{2021, 2022, 2024}, []int{h.Records[0].TaxYear, h.Records[1].TaxYear, h.Records[2].TaxYear})
	require.NotNil(t, h.Latest)
	assert.Equal(t, 2024, h.Latest.TaxYear)
	require.NotNil(t, h.Baseline)
	assert.Equal(t, 200000.0, h.Baseline.TotalValue)
	require.NotNil(t, h.ChangeSinceBaseline)
	assert.Equal(t, 60000.0, *h.ChangeSinceBaseline)
	require.NotNil(t, h.PctChangeSinceBaseline)
	assert.InDelta(t, 30.0, *h.PctChangeSinceBaseline, 1e-9)
}

func TestPropertyIndex_HistoryWithoutBaseline(t *testing.T) {
	idx := NewPropertyIndex(testAssessments())

	h, ok := idx.History("101", BaselineYear)

	require.True(t, ok)
	assert.Nil(t, h.Baseline)
	assert.Nil(t, h.ChangeSinceBaseline)
	assert.Nil(t, h.PctChangeSinceBaseline)
	require.NotNil(t, h.Latest)
	assert.Equal(t, 300000.0, h.Latest.TotalValue)
}

func TestPropertyIndex_HistoryUnknownParcel(t *testing.T) {
	idx := NewPropertyIndex(testAssessments())

	_, ok := idx.History("999", BaselineYear)

	assert.False(t, ok)
	assert.Equal(t, 5, idx.Len())
}
