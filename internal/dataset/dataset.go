// Package dataset loads the three housing tables and holds the current
// immutable snapshot that every computation reads from.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/housing/internal/analytics"
	"github.com/stwalsh4118/housing/internal/logger"
	"github.com/stwalsh4118/housing/internal/models"
)

// ErrDataUnavailable is returned when the tables could not be loaded or no
// dataset has been loaded yet.
var ErrDataUnavailable = errors.New("data unavailable")

// Tables is the raw output of a Loader.
type Tables struct {
	Sales       []models.RawSale
	Assessments []models.AssessmentRecord
	Parcels     []models.ParcelRecord
	// AssessmentTracked is false when the parcel table has no assessment column.
	AssessmentTracked bool
	// DroppedAssessments and DroppedParcels count rows the loader skipped
	// because a required value was missing or malformed.
	DroppedAssessments int
	DroppedParcels     int
}

// Loader reads the three input tables from a source.
type Loader interface {
	Load(ctx context.Context) (*Tables, error)
	// Source names the backing store, e.g. "csv" or "postgres".
	Source() string
}

// LoadStats summarizes what a load kept and dropped.
type LoadStats struct {
	SalesRows              int `json:"salesRows"`
	MarketSales            int `json:"marketSales"`
	DroppedUnparsableSales int `json:"droppedUnparsableSales"`
	DroppedNonMarketSales  int `json:"droppedNonMarketSales"`
	AssessmentRows         int `json:"assessmentRows"`
	DroppedAssessments     int `json:"droppedAssessments"`
	ParcelRows             int `json:"parcelRows"`
	DroppedParcels         int `json:"droppedParcels"`
}

// Dataset is one loaded, normalized snapshot of the tables.
// Nothing in it is modified after New returns.
type Dataset struct {
	LoadedAt          time.Time
	Index             *analytics.PropertyIndex
	Version           string
	Source            string
	Sales             []models.SaleRecord
	Assessments       []models.AssessmentRecord
	Parcels           []models.ParcelRecord
	Stats             LoadStats
	AssessmentTracked bool
}

// New normalizes the sales, indexes the assessments and stamps the result
// with a fresh version ID.
func New(source string, t *Tables) *Dataset {
	normalized := analytics.NormalizeSales(t.Sales)

	return &Dataset{
		LoadedAt:          time.Now().UTC(),
		Index:             analytics.NewPropertyIndex(t.Assessments),
		Version:           uuid.New().String(),
		Source:            source,
		Sales:             normalized.Sales,
		Assessments:       t.Assessments,
		Parcels:           t.Parcels,
		AssessmentTracked: t.AssessmentTracked,
		Stats: LoadStats{
			SalesRows:              len(t.Sales),
			MarketSales:            normalized.Kept(),
			DroppedUnparsableSales: normalized.DroppedUnparsable,
			DroppedNonMarketSales:  normalized.DroppedNonMarket,
			AssessmentRows:         len(t.Assessments),
			DroppedAssessments:     t.DroppedAssessments,
			ParcelRows:             len(t.Parcels),
			DroppedParcels:         t.DroppedParcels,
		},
	}
}

// Holder owns the current Dataset. Readers get a consistent snapshot from
// Current while Reload swaps in a new one.
type Holder struct {
	loader  Loader
	logger  *logger.Logger
	current atomic.Pointer[Dataset]

	mu     sync.Mutex
	onLoad []func(*Dataset)
}

// NewHolder creates a Holder that loads through loader.
func NewHolder(loader Loader, log *logger.Logger) *Holder {
	return &Holder{
		loader: loader,
		logger: log,
	}
}

// OnLoad registers fn to run after every successful load.
func (h *Holder) OnLoad(fn func(*Dataset)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLoad = append(h.onLoad, fn)
}

// Load reads the tables and makes the result current. On failure the
// previous snapshot, if any, stays current and the error wraps
// ErrDataUnavailable.
func (h *Holder) Load(ctx context.Context) (*Dataset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	tables, err := h.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	ds := New(h.loader.Source(), tables)
	previous := h.current.Swap(ds)

	fields := map[string]interface{}{
		"version":             ds.Version,
		"source":              ds.Source,
		"market_sales":        ds.Stats.MarketSales,
		"assessments":         ds.Stats.AssessmentRows,
		"parcels":             ds.Stats.ParcelRows,
		"dropped_unparsable":  ds.Stats.DroppedUnparsableSales,
		"dropped_non_market":  ds.Stats.DroppedNonMarketSales,
		"dropped_assessments": ds.Stats.DroppedAssessments,
		"dropped_parcels":     ds.Stats.DroppedParcels,
		"duration_ms":         time.Since(start).Milliseconds(),
	}
	if previous != nil {
		fields["previous_version"] = previous.Version
	}
	if h.logger != nil {
		h.logger.Info("Dataset loaded", fields)
	}

	for _, fn := range h.onLoad {
		fn(ds)
	}

	return ds, nil
}

// Reload is Load under the name used by signal handlers.
func (h *Holder) Reload(ctx context.Context) error {
	if _, err := h.Load(ctx); err != nil {
		if h.logger != nil {
			h.logger.Error("Dataset reload failed, keeping previous snapshot", err, nil)
		}
		return err
	}
	return nil
}

// Set makes ds current without going through the loader.
func (h *Holder) Set(ds *Dataset) {
	h.current.Store(ds)
}

// Current returns the current snapshot, or ErrDataUnavailable before the
// first successful load.
func (h *Holder) Current() (*Dataset, error) {
	ds := h.current.Load()
	if ds == nil {
		return nil, ErrDataUnavailable
	}
	return ds, nil
}

// Ready reports whether a dataset is loaded.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Version returns the current snapshot's version, or "" when none is loaded.
func (h *Holder) Version() string {
	if ds := h.current.Load(); ds != nil {
		return ds.Version
	}
	return ""
}
