package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/metrics"
	"github.com/aporia-ai/vmsearch/pkg/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	results  []catalog.NormalizedInstance
	err      error
	received *search.Criteria
}

func (f *fakeSearcher) FindOptimalVM(_ context.Context, c search.Criteria) ([]catalog.NormalizedInstance, error) {
	f.received = &c
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return f.results, f.err
}

func a2Instance(t *testing.T) catalog.NormalizedInstance {
	t.Helper()
	inst, err := catalog.NewInstance(catalog.Spec{
		Provider:            catalog.GCP,
		InstanceType:        "a2-highgpu-1g",
		Region:              "us-central1",
		VCPU:                12,
		RAMGB:               85,
		GPUType:             "A100",
		GPUCount:            1,
		ComputePricePerHour: 3.6735,
		PricingModel:        catalog.OnDemand,
		StorageOptions:      catalog.GCPStorageOptions(),
		DefaultStorage:      catalog.GCPDefaultStorage(),
	})
	require.NoError(t, err)
	return inst
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/find-cheapest-instance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

const validBody = `{"vcpu": 4, "ram_gb": 16, "gpu_type": "nvidia-tesla-a100", "preference": "price", "user_ip_address": "1.2.3.4"}`

func TestFindCheapestInstance(t *testing.T) {
	searcher := &fakeSearcher{results: []catalog.NormalizedInstance{a2Instance(t)}}
	w := post(t, New(searcher, prometheus.NewRegistry()), validBody)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "GCP", body[0]["provider"])
	assert.Equal(t, "a2-highgpu-1g", body[0]["instance_type"])
	assert.Equal(t, "OnDemand", body[0]["pricing_model"])
	for _, key := range []string{"region", "vcpu", "ram_gb", "gpu_type", "gpu_count", "total_price_per_hour"} {
		assert.Contains(t, body[0], key)
	}

	require.NotNil(t, searcher.received)
	assert.Equal(t, search.PreferPrice, searcher.received.Preference)
	assert.Equal(t, float64(4), searcher.received.VCPU)
}

func TestFindCheapestInstanceEmptyResult(t *testing.T) {
	w := post(t, New(&fakeSearcher{}, prometheus.NewRegistry()), validBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFindCheapestInstanceBadRequests(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"missing body", ``, "request body is missing"},
		{"malformed json", `{"vcpu": `, "invalid request body"},
		{"vcpu as string", `{"vcpu": "4", "ram_gb": 16, "preference": "price", "user_ip_address": "1.2.3.4"}`, "invalid request body"},
		{"missing ip", `{"vcpu": 4, "ram_gb": 16, "preference": "price"}`, "user_ip_address"},
		{"bad preference", `{"vcpu": 4, "ram_gb": 16, "preference": "fast", "user_ip_address": "1.2.3.4"}`, "preference"},
		{"zero vcpu", `{"vcpu": 0, "ram_gb": 16, "preference": "price", "user_ip_address": "1.2.3.4"}`, "vcpu"},
		{"missing ram", `{"vcpu": 4, "preference": "price", "user_ip_address": "1.2.3.4"}`, "ram_gb"},
		{"negative gpu count", `{"vcpu": 4, "ram_gb": 16, "gpu_count": -1, "preference": "price", "user_ip_address": "1.2.3.4"}`, "gpu_count"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(t, New(&fakeSearcher{}, prometheus.NewRegistry()), tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tc.want)
		})
	}
}

func TestFindCheapestInstanceProvidersUnavailable(t *testing.T) {
	searcher := &fakeSearcher{err: errors.Wrap(search.ErrBothProvidersUnavailable, "aws down, gcp down")}
	w := post(t, New(searcher, prometheus.NewRegistry()), validBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Contains(t, body["details"], "both providers unavailable")
}

func TestHealthAndMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, metrics.InitMetrics(registry))
	metrics.RecordSearch("price", metrics.OutcomeOK, 3)
	s := New(&fakeSearcher{}, registry)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vmsearch_searches_total")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, New(&fakeSearcher{}, prometheus.NewRegistry()).Run(ctx, "127.0.0.1:0"))
}
