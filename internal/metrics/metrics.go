package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the per-client limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)

	// CatalogStores is the size of the snapshot being served
	CatalogStores = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "catalog_stores", Help: "Stores in the current catalog snapshot."},
	)
	// CatalogReloads counts reload attempts by result (ok, failed)
	CatalogReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "catalog_reloads_total", Help: "Catalog reloads by result."},
		[]string{"result"},
	)
	// IngestRowsDropped counts feed rows rejected during ingestion
	IngestRowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "catalog_ingest_rows_dropped_total", Help: "Feed rows dropped for missing or invalid fields."},
	)

	// PlanStops observes how many stops each plan resolved
	PlanStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_stops", Help: "Stops per planned itinerary.", Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12}},
	)
	// PlanReusedStops counts stops chosen by the already-visited fallback
	PlanReusedStops = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "plan_reused_stops_total", Help: "Stops that reused a store already in the plan."},
	)
	// PlanSkippedWaypoints counts waypoints whose category had no stores
	PlanSkippedWaypoints = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "plan_skipped_waypoints_total", Help: "Waypoints skipped because no store had the category."},
	)

	// WebhookDeliveries counts catalog event webhooks by result (ok, failed)
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Catalog event webhook deliveries by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
		Registry.MustRegister(CatalogStores, CatalogReloads, IngestRowsDropped)
		Registry.MustRegister(PlanStops, PlanReusedStops, PlanSkippedWaypoints)
		Registry.MustRegister(WebhookDeliveries)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
