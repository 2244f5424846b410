package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/cache"
	"github.com/stwalsh4118/housing/internal/dataset"
	"github.com/stwalsh4118/housing/internal/logger"
	"github.com/stwalsh4118/housing/internal/models"
)

// Query limits
const (
	MaxQueryLength = 200
	MaxOwnerLimit  = 1000
)

// Service-level errors
var (
	ErrInvalidQuery   = errors.New("invalid query")
	ErrParcelNotFound = errors.New("parcel not found")
)

// DatasetProvider returns the current dataset snapshot.
type DatasetProvider interface {
	Current() (*dataset.Dataset, error)
}

// DatasetInfo describes the loaded snapshot.
type DatasetInfo struct {
	LoadedAt          time.Time         `json:"loadedAt"`
	Version           string            `json:"version"`
	Source            string            `json:"source"`
	Stats             dataset.LoadStats `json:"stats"`
	AssessmentTracked bool              `json:"assessmentTracked"`
}

// Disparity compares household groups against one year's median price.
type Disparity struct {
	ReferenceMedianPrice *float64                             `json:"referenceMedianPrice"`
	Groups               []analytics.IncomeGroupAffordability `json:"groups"`
	ReferenceYear        int                                  `json:"referenceYear"`
}

// OwnerRanking is a sorted, truncated owner list.
type OwnerRanking struct {
	Sort              analytics.OwnerSortKey  `json:"sort"`
	Owners            []models.OwnerAggregate `json:"owners"`
	Limit             int                     `json:"limit"`
	TotalOwners       int                     `json:"totalOwners"`
	AssessmentTracked bool                    `json:"assessmentTracked"`
}

// PropertyLookup is a search result plus, when one parcel is resolved, its
// assessment history.
type PropertyLookup struct {
	History *analytics.PropertyHistory `json:"history,omitempty"`
	Search  analytics.SearchResult     `json:"search"`
}

// AnalysisService defines the interface for the housing analyses.
// Every method reads the current dataset snapshot and returns
// dataset.ErrDataUnavailable when none is loaded.
type AnalysisService interface {
	// DatasetInfo describes the current snapshot.
	DatasetInfo(ctx context.Context) (*DatasetInfo, error)

	// Overview returns the headline affordability metrics.
	Overview(ctx context.Context) (*analytics.Overview, error)

	// Trends returns the long-run change figures.
	Trends(ctx context.Context) (*analytics.Trends, error)

	// YearlySales returns per-year sale statistics with income and
	// affordable price attached, for years at or after minYear.
	YearlySales(ctx context.Context, minYear int) ([]models.YearlyStat, error)

	// SalesVolume returns the number of sales per year at or after minYear.
	SalesVolume(ctx context.Context, minYear int) ([]models.YearCount, error)

	// YearlyAssessments returns per-tax-year assessment statistics.
	YearlyAssessments(ctx context.Context, minYear int) ([]models.AssessmentYearStat, error)

	// IncomeDisparity compares household groups against the reference year's median price.
	IncomeDisparity(ctx context.Context) (*Disparity, error)

	// OwnershipSummary returns the local versus non-local totals.
	OwnershipSummary(ctx context.Context) (*analytics.OwnershipSummary, error)

	// TopOwners ranks owners by key and returns at most limit of them.
	// Returns ErrInvalidQuery if limit is out of range.
	TopOwners(ctx context.Context, key analytics.OwnerSortKey, limit int) (*OwnerRanking, error)

	// SearchProperties matches query against addresses. A single match, or
	// a parcel that names one of several matches, comes back with history.
	// Returns ErrInvalidQuery for an empty or overlong query and
	// analytics.ErrNotInResults for a parcel outside the matches.
	SearchProperties(ctx context.Context, query, parcel string) (*PropertyLookup, error)

	// ResolveProperty is SearchProperties that insists on one parcel.
	// Returns analytics.ErrNoMatch or analytics.ErrSelectionRequired when
	// the query does not resolve on its own.
	ResolveProperty(ctx context.Context, query, parcel string) (*PropertyLookup, error)

	// PropertyHistory returns every assessment of a parcel.
	// Returns ErrParcelNotFound for an unknown parcel.
	PropertyHistory(ctx context.Context, parcel string) (*analytics.PropertyHistory, error)
}

// analysisService is the concrete implementation of AnalysisService.
type analysisService struct {
	data   DatasetProvider
	cache  cache.Cache
	log    *logger.Logger
	income analytics.IncomeTable
	groups []analytics.IncomeGroup
}

// NewAnalysisService creates a new instance of AnalysisService.
// A nil cache disables result caching.
func NewAnalysisService(data DatasetProvider, c cache.Cache, log *logger.Logger) AnalysisService {
	if c == nil {
		c = cache.Noop{}
	}
	return &analysisService{
		data:   data,
		cache:  c,
		log:    log,
		income: analytics.DefaultIncomeTable(),
		groups: analytics.DefaultIncomeGroups(),
	}
}

func (s *analysisService) snapshot() (*dataset.Dataset, error) {
	ds, err := s.data.Current()
	if err != nil {
		s.log.Warn("No dataset loaded", nil)
		return nil, err
	}
	return ds, nil
}

// cached returns the value stored under key or computes and stores it.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *analysisService, key string, compute func() T) T {
	var out T
	found, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.log.Warn("Cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	if found && err == nil {
		return out
	}

	out = compute()
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("Cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return out
}

func (s *analysisService) DatasetInfo(ctx context.Context) (*DatasetInfo, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	return &DatasetInfo{
		Version:           ds.Version,
		Source:            ds.Source,
		LoadedAt:          ds.LoadedAt,
		Stats:             ds.Stats,
		AssessmentTracked: ds.AssessmentTracked,
	}, nil
}

func (s *analysisService) Overview(ctx context.Context) (*analytics.Overview, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	p := analytics.DefaultOverviewParams()
	key := cache.Key(ds.Version, "overview", p.RecentYear, p.ComparisonYear, p.ReferenceIncome)
	overview := cached(ctx, s, key, func() analytics.Overview {
		return analytics.BuildOverview(ds.Sales, p)
	})

	return &overview, nil
}

func (s *analysisService) Trends(ctx context.Context) (*analytics.Trends, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	p := analytics.DefaultTrendParams()
	key := cache.Key(ds.Version, "trends", p.StartYear, p.RecentYear, p.ComparisonYear, p.BaselineYear)
	trends := cached(ctx, s, key, func() analytics.Trends {
		minYear := p.StartYear
		if p.BaselineYear < minYear {
			minYear = p.BaselineYear
		}
		return analytics.BuildTrends(
			analytics.YearlySales(ds.Sales, minYear),
			analytics.YearlyAssessments(ds.Assessments, p.BaselineYear),
			analytics.SalesVolume(ds.Sales, minYear),
			p,
		)
	})

	return &trends, nil
}

func (s *analysisService) YearlySales(ctx context.Context, minYear int) ([]models.YearlyStat, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	key := cache.Key(ds.Version, "sales-yearly", minYear)
	stats := cached(ctx, s, key, func() []models.YearlyStat {
		return analytics.WithIncome(analytics.YearlySales(ds.Sales, minYear), s.income)
	})

	s.log.Debug("Computed yearly sales", map[string]interface{}{
		"min_year": minYear,
		"years":    len(stats),
	})
	return stats, nil
}

func (s *analysisService) SalesVolume(ctx context.Context, minYear int) ([]models.YearCount, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	key := cache.Key(ds.Version, "sales-volume", minYear)
	return cached(ctx, s, key, func() []models.YearCount {
		return analytics.SalesVolume(ds.Sales, minYear)
	}), nil
}

func (s *analysisService) YearlyAssessments(ctx context.Context, minYear int) ([]models.AssessmentYearStat, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	key := cache.Key(ds.Version, "assessments-yearly", minYear)
	return cached(ctx, s, key, func() []models.AssessmentYearStat {
		return analytics.YearlyAssessments(ds.Assessments, minYear)
	}), nil
}

func (s *analysisService) IncomeDisparity(ctx context.Context) (*Disparity, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	year := analytics.ReferenceIncomeYear
	key := cache.Key(ds.Version, "disparity", year)
	disparity := cached(ctx, s, key, func() Disparity {
		var reference *float64
		if stat, ok := analytics.FindYear(analytics.YearlySales(ds.Sales, year), year); ok {
			median := stat.MedianPrice
			reference = &median
		}
		return Disparity{
			ReferenceYear:        year,
			ReferenceMedianPrice: reference,
			Groups:               analytics.IncomeDisparity(s.groups, reference),
		}
	})

	return &disparity, nil
}

func (s *analysisService) ownership(ctx context.Context, ds *dataset.Dataset) analytics.OwnershipReport {
	key := cache.Key(ds.Version, "ownership")
	return cached(ctx, s, key, func() analytics.OwnershipReport {
		return analytics.AnalyzeOwnership(ds.Parcels, ds.AssessmentTracked)
	})
}

func (s *analysisService) OwnershipSummary(ctx context.Context) (*analytics.OwnershipSummary, error) {
	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	summary := s.ownership(ctx, ds).Summary
	return &summary, nil
}

func (s *analysisService) TopOwners(ctx context.Context, key analytics.OwnerSortKey, limit int) (*OwnerRanking, error) {
	if limit < 1 || limit > MaxOwnerLimit {
		s.log.Warn("Invalid owner limit provided", map[string]interface{}{
			"limit": limit,
		})
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidQuery, MaxOwnerLimit, limit)
	}
	if _, err := analytics.ParseOwnerSortKey(string(key)); err != nil || key == "" {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, key)
	}

	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	report := s.ownership(ctx, ds)
	owners := analytics.TopOwners(analytics.SortOwners(report.Owners, key), limit)

	return &OwnerRanking{
		Sort:              key,
		Limit:             limit,
		Owners:            owners,
		TotalOwners:       len(report.Owners),
		AssessmentTracked: report.Summary.AssessmentTracked,
	}, nil
}

func (s *analysisService) search(query string) (*dataset.Dataset, analytics.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, analytics.SearchResult{}, fmt.Errorf("%w: query must not be empty", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return nil, analytics.SearchResult{}, fmt.Errorf("%w: query must be at most %d characters", ErrInvalidQuery, MaxQueryLength)
	}

	ds, err := s.snapshot()
	if err != nil {
		return nil, analytics.SearchResult{}, err
	}

	result := ds.Index.Search(q)
	s.log.Info("Property search", map[string]interface{}{
		"query":   q,
		"status":  result.Status,
		"matches": len(result.Matches),
	})
	return ds, result, nil
}

func (s *analysisService) withHistory(ds *dataset.Dataset, result analytics.SearchResult, parcel string) (*PropertyLookup, error) {
	match, err := result.Resolve(parcel)
	if err != nil {
		return nil, err
	}

	history, ok := ds.Index.History(match.ParcelNumber, analytics.BaselineYear)
	if !ok {
		return nil, ErrParcelNotFound
	}
	return &PropertyLookup{Search: result, History: &history}, nil
}

func (s *analysisService) SearchProperties(ctx context.Context, query, parcel string) (*PropertyLookup, error) {
	ds, result, err := s.search(query)
	if err != nil {
		return nil, err
	}

	parcel = strings.TrimSpace(parcel)
	if result.Status == analytics.SearchNone || (result.Status == analytics.SearchMultiple && parcel == "") {
		return &PropertyLookup{Search: result}, nil
	}
	return s.withHistory(ds, result, parcel)
}

func (s *analysisService) ResolveProperty(ctx context.Context, query, parcel string) (*PropertyLookup, error) {
	ds, result, err := s.search(query)
	if err != nil {
		return nil, err
	}

	lookup, err := s.withHistory(ds, result, strings.TrimSpace(parcel))
	if err != nil {
		if errors.Is(err, analytics.ErrSelectionRequired) {
			return &PropertyLookup{Search: result}, err
		}
		return nil, err
	}
	return lookup, nil
}

func (s *analysisService) PropertyHistory(ctx context.Context, parcel string) (*analytics.PropertyHistory, error) {
	parcel = strings.TrimSpace(parcel)
	if parcel == "" {
		return nil, fmt.Errorf("%w: parcel must not be empty", ErrInvalidQuery)
	}

	ds, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	history, ok := ds.Index.History(parcel, analytics.BaselineYear)
	if !ok {
		s.log.Debug("No assessments for parcel", map[string]interface{}{
			"parcel": parcel,
		})
		return nil, ErrParcelNotFound
	}
	return &history, nil
}
