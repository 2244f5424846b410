package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/dataset"
	apierrors "github.com/stwalsh4118/housing/internal/errors"
	"github.com/stwalsh4118/housing/internal/export"
	"github.com/stwalsh4118/housing/internal/logger"
	"github.com/stwalsh4118/housing/internal/middleware"
	"github.com/stwalsh4118/housing/internal/models"
	"github.com/stwalsh4118/housing/internal/services"
	"github.com/xuri/excelize/v2"
)

// MockAnalysisService is a mock implementation of services.AnalysisService for testing
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) DatasetInfo(ctx context.Context) (*services.DatasetInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetInfo), args.Error(1)
}

func (m *MockAnalysisService) Overview(ctx context.Context) (*analytics.Overview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Overview), args.Error(1)
}

func (m *MockAnalysisService) Trends(ctx context.Context) (*analytics.Trends, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Trends), args.Error(1)
}

func (m *MockAnalysisService) YearlySales(ctx context.Context, minYear int) ([]models.YearlyStat, error) {
	args := m.Called(ctx, minYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.YearlyStat), args.Error(1)
}

func (m *MockAnalysisService) SalesVolume(ctx context.Context, minYear int) ([]models.YearCount, error) {
	args := m.Called(ctx, minYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.YearCount), args.Error(1)
}

func (m *MockAnalysisService) YearlyAssessments(ctx context.Context, minYear int) ([]models.AssessmentYearStat, error) {
	args := m.Called(ctx, minYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AssessmentYearStat), args.Error(1)
}

func (m *MockAnalysisService) IncomeDisparity(ctx context.Context) (*services.Disparity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Disparity), args.Error(1)
}

func (m *MockAnalysisService) OwnershipSummary(ctx context.Context) (*analytics.OwnershipSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.OwnershipSummary), args.Error(1)
}

func (m *MockAnalysisService) TopOwners(ctx context.Context, key analytics.OwnerSortKey, limit int) (*services.OwnerRanking, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OwnerRanking), args.Error(1)
}

func (m *MockAnalysisService) SearchProperties(ctx context.Context, query, parcel string) (*services.PropertyLookup, error) {
	args := m.Called(ctx, query, parcel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertyLookup), args.Error(1)
}

func (m *MockAnalysisService) ResolveProperty(ctx context.Context, query, parcel string) (*services.PropertyLookup, error) {
	args := m.Called(ctx, query, parcel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertyLookup), args.Error(1)
}

func (m *MockAnalysisService) PropertyHistory(ctx context.Context, parcel string) (*analytics.PropertyHistory, error) {
	args := m.Called(ctx, parcel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.PropertyHistory), args.Error(1)
}

// setupAnalysisTestRouter creates a test router with middleware and analysis handlers.
func setupAnalysisTestRouter(service services.AnalysisService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test")))

	NewAnalysisHandler(service).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var response apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func f64(v float64) *float64 { return &v }

func TestOverview_Success(t *testing.T) {
	// Arrange
	svc := new(MockAnalysisService)
	svc.On("Overview", mock.Anything).Return(&analytics.Overview{
		RecentYear:        2024,
		RecentMedianPrice: f64(550000),
	}, nil)
	router := setupAnalysisTestRouter(svc)

	// Act
	w := get(t, router, "/api/v1/overview")

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 550000.0, body["recentMedianPrice"])
	assert.Nil(t, body["comparisonMedianPrice"], "undefined figures encode as null")
	assert.Contains(t, body, "comparisonMedianPrice")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	svc.AssertExpectations(t)
}

func TestDataUnavailable(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Trends", mock.Anything).Return(nil, dataset.ErrDataUnavailable)
	router := setupAnalysisTestRouter(svc)

	w := get(t, router, "/api/v1/trends")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := decodeError(t, w)
	assert.Equal(t, apierrors.ErrDataUnavailable, response.Error.Code)
	assert.NotEmpty(t, response.Error.RequestID)
}

func TestInternalError(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("OwnershipSummary", mock.Anything).Return(nil, errors.New("boom"))
	router := setupAnalysisTestRouter(svc)

	w := get(t, router, "/api/v1/ownership/summary")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	response := decodeError(t, w)
	assert.Equal(t, apierrors.ErrInternalServer, response.Error.Code)
	assert.NotContains(t, response.Error.Message, "boom")
}

func TestYearlySales_MinYear(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedYear   int
		expectedStatus int
	}{
		{"default floor", "", analytics.DefaultMinYear, http.StatusOK},
		{"explicit floor", "?min_year=2015", 2015, http.StatusOK},
		{"below range", "?min_year=1800", 0, http.StatusBadRequest},
		{"above range", "?min_year=2200", 0, http.StatusBadRequest},
		{"not a number", "?min_year=abc", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := new(MockAnalysisService)
			if tt.expectedYear != 0 {
				svc.On("YearlySales", mock.Anything, tt.expectedYear).Return([]models.YearlyStat{{Year: 2024, MedianPrice: 550000}}, nil)
			}
			router := setupAnalysisTestRouter(svc)

			// Act
			w := get(t, router, "/api/v1/sales/yearly"+tt.query)

			// Assert
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response struct {
					Years   []models.YearlyStat `json:"years"`
					MinYear int                 `json:"minYear"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.expectedYear, response.MinYear)
				require.Len(t, response.Years, 1)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestYearlySales_ValidationDetails(t *testing.T) {
	router := setupAnalysisTestRouter(new(MockAnalysisService))

	w := get(t, router, "/api/v1/sales/yearly?min_year=1800")

	response := decodeError(t, w)
	assert.Equal(t, apierrors.ErrValidation, response.Error.Code)
	assert.Equal(t, "Must be greater than or equal to 1900", response.Error.Details["MinYear"])
}

func TestSalesVolumeAndAssessments(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("SalesVolume", mock.Anything, 2020).Return([]models.YearCount{{Year: 2020, Count: 3}}, nil)
	svc.On("YearlyAssessments", mock.Anything, analytics.DefaultMinYear).Return([]models.AssessmentYearStat{{Year: 2024, Count: 2}}, nil)
	router := setupAnalysisTestRouter(svc)

	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/sales/volume?min_year=2020").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/assessments/yearly").Code)
	svc.AssertExpectations(t)
}

func TestOwners(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedKey    analytics.OwnerSortKey
		expectedLimit  int
		expectedStatus int
	}{
		{"defaults", "", analytics.SortByProperties, analytics.DefaultTopOwnerLimit, http.StatusOK},
		{"acres with limit", "?sort=acres&limit=5", analytics.SortByAcres, 5, http.StatusOK},
		{"assessment", "?sort=assessment", analytics.SortByAssessment, analytics.DefaultTopOwnerLimit, http.StatusOK},
		{"unknown sort", "?sort=name", "", 0, http.StatusBadRequest},
		{"limit zero", "?limit=0", "", 0, http.StatusBadRequest},
		{"limit too large", "?limit=1001", "", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			if tt.expectedStatus == http.StatusOK {
				svc.On("TopOwners", mock.Anything, tt.expectedKey, tt.expectedLimit).Return(&services.OwnerRanking{
					Sort:  tt.expectedKey,
					Limit: tt.expectedLimit,
				}, nil)
			}
			router := setupAnalysisTestRouter(svc)

			w := get(t, router, "/api/v1/ownership/owners"+tt.query)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, apierrors.ErrValidation, decodeError(t, w).Error.Code)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSearch(t *testing.T) {
	multiple := &services.PropertyLookup{Search: analytics.SearchResult{
		Query:  "MAIN",
		Status: analytics.SearchMultiple,
		Matches: []analytics.AddressMatch{
			{ParcelNumber: "100", FullAddress: "123 MAIN ST"},
			{ParcelNumber: "101", FullAddress: "45 MAIN ST"},
		},
		RequiresSelection: true,
	}}

	t.Run("multiple matches are a normal result", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("SearchProperties", mock.Anything, "MAIN", "").Return(multiple, nil)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/search?q=MAIN")

		assert.Equal(t, http.StatusOK, w.Code)
		var response services.PropertyLookup
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Search.RequiresSelection)
		assert.Len(t, response.Search.Matches, 2)
		assert.Nil(t, response.History)
	})

	t.Run("parcel outside results is not found", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("SearchProperties", mock.Anything, "MAIN", "999").Return(nil, analytics.ErrNotInResults)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/search?q=MAIN&parcel=999")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apierrors.ErrNotFound, decodeError(t, w).Error.Code)
	})

	t.Run("missing query fails validation", func(t *testing.T) {
		router := setupAnalysisTestRouter(new(MockAnalysisService))

		w := get(t, router, "/api/v1/properties/search")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, apierrors.ErrValidation, response.Error.Code)
		assert.Equal(t, "This field is required", response.Error.Details["Q"])
	})

	t.Run("blank query is rejected by the service", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("SearchProperties", mock.Anything, "   ", "").Return(nil, fmt.Errorf("%w: query must not be empty", services.ErrInvalidQuery))
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/search?q=%20%20%20")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrBadRequest, decodeError(t, w).Error.Code)
	})

	t.Run("resolve asks for a selection", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("ResolveProperty", mock.Anything, "MAIN", "").Return(multiple, analytics.ErrSelectionRequired)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/resolve?q=MAIN")

		assert.Equal(t, http.StatusConflict, w.Code)
		response := decodeError(t, w)
		assert.Equal(t, apierrors.ErrConflict, response.Error.Code)
		candidates, ok := response.Error.Details["candidates"].([]interface{})
		require.True(t, ok)
		assert.Len(t, candidates, 2)
	})

	t.Run("resolve with no match", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("ResolveProperty", mock.Anything, "ZZZ", "").Return(nil, analytics.ErrNoMatch)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/resolve?q=ZZZ")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHistory(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("PropertyHistory", mock.Anything, "100").Return(&analytics.PropertyHistory{
			ParcelNumber: "100",
			FullAddress:  "123 MAIN ST",
			BaselineYear: analytics.BaselineYear,
		}, nil)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/100/history")

		assert.Equal(t, http.StatusOK, w.Code)
		var response analytics.PropertyHistory
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "123 MAIN ST", response.FullAddress)
		assert.Nil(t, response.ChangeSinceBaseline)
	})

	t.Run("unknown parcel", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("PropertyHistory", mock.Anything, "404").Return(nil, services.ErrParcelNotFound)
		router := setupAnalysisTestRouter(svc)

		w := get(t, router, "/api/v1/properties/404/history")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apierrors.ErrNotFound, decodeError(t, w).Error.Code)
	})
}

func TestExport(t *testing.T) {
	// Arrange: a real service over a small dataset
	holder := dataset.NewHolder(nil, nil)
	holder.Set(dataset.New("test", &dataset.Tables{
		Sales: []models.RawSale{
			{ParcelNumber: "1", SaleDate: "2023/03/01 00:00:00+00", SaleAmount: "450000"},
			{ParcelNumber: "2", SaleDate: "2024/03/01 00:00:00+00", SaleAmount: "550000"},
		},
		Assessments: []models.AssessmentRecord{
			{ParcelNumber: "1", StreetNumber: "1", StreetName: "Main St", TaxYear: 2024, TotalValue: 300000},
		},
		Parcels: []models.ParcelRecord{
			{ParcelNumber: "1", OwnerName: "A", LotSquareFeet: 43560},
		},
	}))
	service := services.NewAnalysisService(holder, nil, logger.New("test"))
	router := setupAnalysisTestRouter(service)

	// Act
	w := get(t, router, "/api/v1/export.xlsx")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ExportFilename)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, export.Sheets, f.GetSheetList())

	rows, err := f.GetRows(export.SheetYearlySales)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExport_NoDataset(t *testing.T) {
	service := services.NewAnalysisService(dataset.NewHolder(nil, nil), nil, logger.New("test"))
	router := setupAnalysisTestRouter(service)

	w := get(t, router, "/api/v1/export.xlsx")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
