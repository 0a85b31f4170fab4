// Package metrics collects prometheus metrics about package operations.
//
// Metrics are registered on a private registry and may be dumped to a text file
// in the prometheus exposition format (e.g. for the node exporter textfile collector).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pkgr"

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	packagesInstalled = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_installed_total",
			Help:      "Total number of package versions committed to the store",
		},
		[]string{"source"},
	)

	packagesRemoved = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_removed_total",
			Help:      "Total number of package versions removed from the store",
		},
	)

	syncFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_failures_total",
			Help:      "Total number of packages which failed to synchronize",
		},
		[]string{"source"},
	)

	fetchRetries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Total number of retried remote fetches",
		},
		[]string{"host"},
	)

	storageOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"store", "op", "result"},
	)

	storageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"store", "op"},
	)
)

// Registry exposes the registry holding all metrics
func Registry() *prometheus.Registry {
	return registry
}

// PackageInstalled counts a committed package version
func PackageInstalled(source string) {
	if source == "" {
		source = "local"
	}
	packagesInstalled.WithLabelValues(source).Inc()
}

// PackageRemoved counts a removed package version
func PackageRemoved() {
	packagesRemoved.Inc()
}

// SyncFailure counts a package which failed to synchronize from a source
func SyncFailure(source string) {
	syncFailures.WithLabelValues(source).Inc()
}

// FetchRetry counts a retried remote fetch
func FetchRetry(host string) {
	fetchRetries.WithLabelValues(host).Inc()
}

// StorageOp records the outcome and duration of a storage operation
func StorageOp(store, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storageOps.WithLabelValues(store, op, result).Inc()
	storageDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

// WriteToTextfile dumps all metrics to a file, in the prometheus text format
func WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
