package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, InitMetrics(registry))
	// second registry is ignored
	require.NoError(t, InitMetrics(prometheus.NewRegistry()))

	RecordSearch("price", OutcomeOK, 3)
	ObserveCatalogFetch("AWS", 150*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "vmsearch_searches_total")
	assert.Contains(t, names, "vmsearch_search_results")
	assert.Contains(t, names, "vmsearch_catalog_fetch_seconds")
}

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(searchesTotal.WithLabelValues("performance", OutcomePartial))
	RecordSearch("performance", OutcomePartial, 0)
	assert.Equal(t, before+1, testutil.ToFloat64(searchesTotal.WithLabelValues("performance", OutcomePartial)))
}

func TestRecordProviderFailure(t *testing.T) {
	before := testutil.ToFloat64(providerFailuresTotal.WithLabelValues("GCP"))
	RecordProviderFailure("GCP")
	RecordProviderFailure("GCP")
	assert.Equal(t, before+2, testutil.ToFloat64(providerFailuresTotal.WithLabelValues("GCP")))
}
