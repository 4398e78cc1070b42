// Package metrics defines the Prometheus collectors used by the store, the
// ranker and the ingestion pipeline, and exposes an HTTP handler for scraping.
//
// Every recording method is safe to call on a nil *Metrics, so components can
// run without instrumentation in tests and one-shot commands.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	ShardLoadsTotal        *prometheus.CounterVec
	ShardFlushesTotal      *prometheus.CounterVec
	StoreLookupsTotal      *prometheus.CounterVec
	StoreWritesTotal       prometheus.Counter
	EmbeddingsTotal        *prometheus.CounterVec
	EmbeddingBatchLatency  prometheus.Histogram
	WordsSkippedTotal      prometheus.Counter
	RankLatency            prometheus.Histogram
	RankCorpusSize         prometheus.Gauge
	DegenerateVectorsTotal prometheus.Counter
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	CircuitBreakerState    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps repeated construction in tests from
// panicking on duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ShardLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordvec_shard_loads_total",
				Help: "Shards materialized in memory by source (disk, empty).",
			},
			[]string{"source"},
		),
		ShardFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordvec_shard_flushes_total",
				Help: "Shard flush attempts by status (written, clean, error).",
			},
			[]string{"status"},
		),
		StoreLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordvec_store_lookups_total",
				Help: "Vector lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		StoreWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordvec_store_writes_total",
				Help: "Vectors set in the resident shard.",
			},
		),
		EmbeddingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordvec_embeddings_total",
				Help: "Embedding generation outcomes by status (ok, failed).",
			},
			[]string{"status"},
		),
		EmbeddingBatchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordvec_embedding_batch_latency_seconds",
				Help:    "Latency of one embedding batch request in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		WordsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordvec_words_skipped_total",
				Help: "Words skipped during ingestion because a vector already exists.",
			},
		),
		RankLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordvec_rank_latency_seconds",
				Help:    "Full ranking latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		RankCorpusSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordvec_rank_corpus_size",
				Help: "Number of words scored by the most recent ranking.",
			},
		),
		DegenerateVectorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordvec_degenerate_vectors_total",
				Help: "Zero-norm or non-finite vectors encountered while ranking.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordvec_rank_cache_hits_total",
				Help: "Ranking cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordvec_rank_cache_misses_total",
				Help: "Ranking cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wordvec_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ShardLoadsTotal,
		m.ShardFlushesTotal,
		m.StoreLookupsTotal,
		m.StoreWritesTotal,
		m.EmbeddingsTotal,
		m.EmbeddingBatchLatency,
		m.WordsSkippedTotal,
		m.RankLatency,
		m.RankCorpusSize,
		m.DegenerateVectorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for m's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ShardLoaded(fromDisk bool) {
	if m == nil {
		return
	}
	source := "empty"
	if fromDisk {
		source = "disk"
	}
	m.ShardLoadsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ShardFlushed(status string) {
	if m == nil {
		return
	}
	m.ShardFlushesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.StoreLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Write() {
	if m == nil {
		return
	}
	m.StoreWritesTotal.Inc()
}

func (m *Metrics) Embedding(ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "ok"
	}
	m.EmbeddingsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) EmbeddingBatch(seconds float64) {
	if m == nil {
		return
	}
	m.EmbeddingBatchLatency.Observe(seconds)
}

func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.WordsSkippedTotal.Inc()
}

func (m *Metrics) Ranked(seconds float64, corpus int, degenerate int) {
	if m == nil {
		return
	}
	m.RankLatency.Observe(seconds)
	m.RankCorpusSize.Set(float64(corpus))
	m.DegenerateVectorsTotal.Add(float64(degenerate))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
