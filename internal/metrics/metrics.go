// Package metrics exposes the Prometheus instruments the repositories,
// protection registry and prefetch engine report against, following the
// teacher's pkg/metrics layout.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total number of cache hits, by record kind.",
	}, []string{"kind"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total number of cache misses, by record kind.",
	}, []string{"kind"})

	CacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_stores_total",
		Help: "Total number of cache store operations, by record kind.",
	}, []string{"kind"})

	QuadTreeAncestorWalkDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_quadtree_ancestor_walk_depth",
		Help:    "Number of ancestor levels walked before resolving a tile.",
		Buckets: []float64{0, 1, 2, 3, 4},
	})

	ProtectionRegistrySize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalog_protection_registry_size",
		Help: "Number of distinct keys currently pinned, by key kind.",
	}, []string{"kind"})

	PrefetchBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_prefetch_batch_duration_seconds",
		Help:    "Duration of a single prefetch batch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	PrefetchBytesTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_prefetch_bytes_transferred_total",
		Help: "Bytes transferred while prefetching, by kind.",
	}, []string{"kind"})

	NetworkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_network_errors_total",
		Help: "Total number of backend API errors, by operation.",
	}, []string{"operation"})
)
