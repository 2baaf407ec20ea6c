package metrics

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK          = "ok"
	OutcomePartial     = "partial"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
)

var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmsearch_searches_total",
			Help: "Total number of searches by preference and outcome",
		},
		[]string{"preference", "outcome"},
	)
	providerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmsearch_provider_failures_total",
			Help: "Total number of catalog fetches that left a provider unavailable",
		},
		[]string{"provider"},
	)
	searchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vmsearch_search_results",
			Help:    "Number of instances returned per search",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
	catalogFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vmsearch_catalog_fetch_seconds",
			Help:    "Duration of provider catalog fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// initOnce ensures InitMetrics registers the collectors a single time
	initOnce sync.Once
	initErr  error
)

// InitMetrics registers the collectors with registry. Only the first call
// registers; later calls return its result. Recording works whether or not
// the collectors were registered.
func InitMetrics(registry prometheus.Registerer) error {
	initOnce.Do(func() {
		for name, c := range map[string]prometheus.Collector{
			"searchesTotal":         searchesTotal,
			"providerFailuresTotal": providerFailuresTotal,
			"searchResults":         searchResults,
			"catalogFetchSeconds":   catalogFetchSeconds,
		} {
			if err := registry.Register(c); err != nil {
				initErr = errors.Wrapf(err, "failed to register %s metric", name)
				return
			}
		}
	})
	return initErr
}

func RecordSearch(preference, outcome string, results int) {
	searchesTotal.WithLabelValues(preference, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomePartial {
		searchResults.Observe(float64(results))
	}
}

func RecordProviderFailure(provider string) {
	providerFailuresTotal.WithLabelValues(provider).Inc()
}

func ObserveCatalogFetch(provider string, d time.Duration) {
	catalogFetchSeconds.WithLabelValues(provider).Observe(d.Seconds())
}
