// Package metrics provides the injected operation-metrics collector. It is
// an explicitly-owned component created at process start and passed by
// reference; there is no global accessor.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Record is one observed operation.
type Record struct {
	Operation string          `json:"operation"`
	Status    string          `json:"status"`
	Latency   time.Duration   `json:"-"`
	LatencyMs float64         `json:"latencyMs"`
	Amount    decimal.Decimal `json:"amount"`
	ErrorKind string          `json:"errorKind,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Stats summarizes recent operations over a time window.
type Stats struct {
	Total        int     `json:"total"`
	Success      int     `json:"success"`
	Errors       int     `json:"errors"`
	AvgLatencyMs float64 `json:"avgLatency"`
	ErrorRate    float64 `json:"errorRate"`
}

// Collector records operations both to prometheus and to a bounded in-memory
// ring used for windowed JSON stats.
type Collector struct {
	mu         sync.Mutex
	records    []Record
	maxRecords int

	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	amounts    *prometheus.HistogramVec
}

// NewCollector builds a collector and registers its metrics on the
// caller-owned registry.
func NewCollector(registry *prometheus.Registry, maxRecords int) *Collector {
	if maxRecords <= 0 {
		maxRecords = 1000
	}

	c := &Collector{
		maxRecords: maxRecords,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_operations_total",
				Help: "Total wallet operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_operation_errors_total",
				Help: "Total wallet operation failures by kind.",
			},
			[]string{"operation", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_operation_duration_seconds",
				Help:    "Wallet operation duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		amounts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_operation_amount",
				Help:    "Wallet operation amounts.",
				Buckets: prometheus.ExponentialBuckets(1, 10, 6),
			},
			[]string{"operation"},
		),
	}

	if registry != nil {
		registry.MustRegister(c.operations, c.errors, c.duration, c.amounts)
	}
	return c
}

// RecordOperation implements wallet.MetricsCollector.
func (c *Collector) RecordOperation(operation, status string, latency time.Duration, amount decimal.Decimal, errorKind string) {
	c.operations.WithLabelValues(operation, status).Inc()
	c.duration.WithLabelValues(operation).Observe(latency.Seconds())
	if amountFloat, _ := amount.Float64(); amountFloat > 0 {
		c.amounts.WithLabelValues(operation).Observe(amountFloat)
	}
	if errorKind != "" {
		c.errors.WithLabelValues(operation, errorKind).Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, Record{
		Operation: operation,
		Status:    status,
		Latency:   latency,
		LatencyMs: float64(latency.Microseconds()) / 1000,
		Amount:    amount,
		ErrorKind: errorKind,
		Timestamp: time.Now(),
	})
	if len(c.records) > c.maxRecords {
		c.records = c.records[len(c.records)-c.maxRecords:]
	}
}

// Stats returns aggregates over records no older than window.
func (c *Collector) Stats(window time.Duration) Stats {
	cutoff := time.Now().Add(-window)

	c.mu.Lock()
	defer c.mu.Unlock()

	var stats Stats
	var totalLatencyMs float64
	for _, record := range c.records {
		if record.Timestamp.Before(cutoff) {
			continue
		}
		stats.Total++
		totalLatencyMs += record.LatencyMs
		if record.Status == "success" {
			stats.Success++
		} else {
			stats.Errors++
		}
	}

	if stats.Total > 0 {
		stats.AvgLatencyMs = roundTo2(totalLatencyMs / float64(stats.Total))
		stats.ErrorRate = roundTo2(float64(stats.Errors) / float64(stats.Total) * 100)
	}
	return stats
}

// Reset clears the in-memory ring. Prometheus counters are cumulative and
// are not reset.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
