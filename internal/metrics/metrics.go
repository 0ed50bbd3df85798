// Package metrics exposes prometheus collectors for audit runs and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/invhealth/internal/domain"
)

var (
	AuditRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_audit_runs_total",
		Help: "Total number of audit runs by outcome",
	}, []string{"status", "mode"})

	AuditRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_audit_run_duration_seconds",
		Help:    "Wall time of audit runs",
		Buckets: prometheus.DefBuckets,
	})

	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_health_score",
		Help: "Health score of the latest completed audit",
	})

	IssuesFound = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_audit_issues",
		Help: "Issues found by the latest completed audit",
	}, []string{"type"})

	StockoutRisks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_stockout_risks",
		Help: "Items at stockout risk in the latest completed audit",
	})

	FixedMutationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_audit_fixed_mutations_total",
		Help: "Total number of corrections written back",
	})

	RetrainRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_retrain_requests_total",
		Help: "Total number of retrain requests published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// ObserveRun records the outcome of one audit run. report is nil on failure.
func ObserveRun(report *domain.AuditReport, dryRun bool, elapsed time.Duration, err error) {
	mode := "persist"
	if dryRun {
		mode = "dry_run"
	}
	AuditRunDuration.Observe(elapsed.Seconds())

	if err != nil || report == nil {
		AuditRunsTotal.WithLabelValues("failed", mode).Inc()
		return
	}
	AuditRunsTotal.WithLabelValues("completed", mode).Inc()

	HealthScore.Set(float64(report.Summary.HealthScore))
	StockoutRisks.Set(float64(report.Summary.StockoutRiskCount))
	for t, n := range report.Summary.IssueCounts {
		IssuesFound.WithLabelValues(string(t)).Set(float64(n))
	}
	if !dryRun {
		FixedMutationsTotal.Add(float64(report.Summary.FixedMutations))
	}
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
