package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	searchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medkb_search_latency_ms",
		Help:    "Latency of knowledge searches in milliseconds",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200},
	})

	searchCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medkb_search_candidates",
		Help:    "Number of vector store candidates per search before confidence filtering",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	candidatesFiltered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medkb_candidates_filtered_total",
		Help: "Candidates discarded below the confidence threshold",
	})

	searchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medkb_search_errors_total",
		Help: "Searches degraded to empty results by upstream failures",
	})

	ingestedChunks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medkb_ingested_chunks_total",
		Help: "Chunks written to the vector store per source",
	}, []string{"source"})

	ingestSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medkb_ingest_skipped_total",
		Help: "Documents skipped because their content hash was already indexed",
	})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medkb_cache_hits_total",
		Help: "Search result cache hits",
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(searchLatency, searchCandidates, candidatesFiltered,
			searchErrors, ingestedChunks, ingestSkipped, cacheHits)
	})
}

// ObserveSearch records latency and candidate count for one search.
func ObserveSearch(start time.Time, candidates int) {
	ensureRegistered()
	searchLatency.Observe(float64(time.Since(start).Milliseconds()))
	searchCandidates.Observe(float64(candidates))
}

// AddFiltered counts candidates dropped below the confidence threshold.
func AddFiltered(n int) {
	ensureRegistered()
	if n > 0 {
		candidatesFiltered.Add(float64(n))
	}
}

// IncSearchError counts a degraded search.
func IncSearchError() {
	ensureRegistered()
	searchErrors.Inc()
}

// AddIngestedChunks counts chunks written per source.
func AddIngestedChunks(source string, n int) {
	ensureRegistered()
	if n > 0 {
		ingestedChunks.WithLabelValues(source).Add(float64(n))
	}
}

// IncIngestSkipped counts an idempotent re-ingestion skip.
func IncIngestSkipped() {
	ensureRegistered()
	ingestSkipped.Inc()
}

// IncCacheHit counts a search result cache hit.
func IncCacheHit() {
	ensureRegistered()
	cacheHits.Inc()
}

// Collectors exposes all collectors for external registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		searchLatency, searchCandidates, candidatesFiltered,
		searchErrors, ingestedChunks, ingestSkipped, cacheHits,
	}
}
