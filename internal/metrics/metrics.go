// Package metrics exposes Prometheus collectors for the HTTP API, the
// result cache and the loaded dataset.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/housing/internal/dataset"
)

const namespace = "housing"

// Metrics holds the registered collectors.
type Metrics struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	datasetRows  *prometheus.GaugeVec
	droppedRows  *prometheus.GaugeVec
	loadedAt     prometheus.Gauge
}

// New registers the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		registerer: reg,
		gatherer:   gatherer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"result"}),
		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows kept in the current dataset by table.",
		}, []string{"table"}),
		droppedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_dropped_rows",
			Help:      "Rows dropped while loading the current dataset by reason.",
		}, []string{"reason"}),
		loadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time the current dataset was loaded.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.cacheLookups, m.datasetRows, m.droppedRows, m.loadedAt)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// ObserveCache counts one cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveDataset publishes the row counts of a newly loaded dataset.
func (m *Metrics) ObserveDataset(ds *dataset.Dataset) {
	m.datasetRows.WithLabelValues("sales").Set(float64(ds.Stats.MarketSales))
	m.datasetRows.WithLabelValues("assessments").Set(float64(ds.Stats.AssessmentRows))
	m.datasetRows.WithLabelValues("parcels").Set(float64(ds.Stats.ParcelRows))

	m.droppedRows.WithLabelValues("unparsable_sale").Set(float64(ds.Stats.DroppedUnparsableSales))
	m.droppedRows.WithLabelValues("non_market_sale").Set(float64(ds.Stats.DroppedNonMarketSales))
	m.droppedRows.WithLabelValues("assessment").Set(float64(ds.Stats.DroppedAssessments))
	m.droppedRows.WithLabelValues("parcel").Set(float64(ds.Stats.DroppedParcels))

	m.loadedAt.Set(float64(ds.LoadedAt.Unix()))
}

// PoolStater reports connection pool statistics.
type PoolStater interface {
	Stats() *pgxpool.Stat
}

// ObservePool exports the connection counts of the postgres pool. Gauges
// read zero once the pool is closed.
func (m *Metrics) ObservePool(db PoolStater) {
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			s := db.Stats()
			if s == nil {
				return 0
			}
			return float64(value(s))
		})
	}

	m.registerer.MustRegister(
		gauge("total_conns", "Connections currently open in the pool.", (*pgxpool.Stat).TotalConns),
		gauge("acquired_conns", "Connections currently checked out.", (*pgxpool.Stat).AcquiredConns),
		gauge("idle_conns", "Idle connections in the pool.", (*pgxpool.Stat).IdleConns),
		gauge("max_conns", "Configured maximum pool size.", (*pgxpool.Stat).MaxConns),
	)
}
