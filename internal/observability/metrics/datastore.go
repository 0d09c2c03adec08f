package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations
type DatastoreMetrics struct {
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	recordCountGauge       prometheus.Gauge
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{
		dbOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datastore_operations_total",
				Help: "Total number of datastore operations",
			},
			[]string{"operation"},
		),
		dbOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datastore_operation_duration_seconds",
				Help:    "Datastore operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		dbOperationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datastore_operation_errors_total",
				Help: "Total number of failed datastore operations",
			},
			[]string{"operation"},
		),
		recordCountGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "datastore_emission_records",
				Help: "Number of emission records in the database",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.recordCountGauge,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordOperation records a completed datastore operation and its outcome.
func (m *DatastoreMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.dbOperationsTotal.WithLabelValues(operation).Inc()
	m.dbOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.dbOperationErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// SetRecordCount updates the emission record count gauge.
func (m *DatastoreMetrics) SetRecordCount(count int64) {
	m.recordCountGauge.Set(float64(count))
}
