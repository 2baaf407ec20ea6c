package nodesource

import (
	"context"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
)

func TestEmbeddedGCPCatalogParses(t *testing.T) {
	file, err := embeddedGCPCatalog()
	require.NoError(t, err)
	assert.NotEmpty(t, file.Version)

	machines := file.machineTypes()
	names := lo.Map(machines, func(m gcpMachineType, _ int) string { return m.Name })
	assert.Contains(t, names, "n2-standard-4")
	assert.Contains(t, names, "a2-highgpu-1g")
	assert.Equal(t, len(names), len(lo.Uniq(names)))
}

func TestGCPNodeSourceA100Price(t *testing.T) {
	s := &GCPNodeSource{
		Regions:       []string{"us-central1"},
		InstanceTypes: []*regexp.Regexp{regexp.MustCompile(`^a2-highgpu-1g$`)},
		Spot:          true,
		Aliases:       aliasTable(t),
	}
	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	od := records[0]
	assert.Equal(t, catalog.GCP, od.Provider)
	assert.Equal(t, catalog.OnDemand, od.PricingModel)
	assert.Equal(t, 12, od.VCPU)
	assert.Equal(t, float64(85), od.RAMGB)
	assert.Equal(t, "A100", od.GPUType)
	assert.Equal(t, "nvidia-tesla-a100", od.GPUModel)
	assert.Equal(t, 1, od.GPUCount)
	// 12*0.031611 + 85*0.004237 + 2.934
	assert.InDelta(t, 3.6735, od.ComputePricePerHour, 1e-4)
	assert.InDelta(t, 3.6735+10*0.10/720, od.TotalPricePerHour, 1e-4)
	assert.Equal(t, "Up to 100 Gbps", od.NetworkPerformance)
	assert.Equal(t, "US Central (Iowa)", od.Location)

	sp := records[1]
	assert.Equal(t, catalog.Spot, sp.PricingModel)
	assert.InDelta(t, 3.6735*0.75, sp.ComputePricePerHour, 1e-4)
}

func TestGCPNodeSourceNoAcceleratorMeansNoGPU(t *testing.T) {
	s := &GCPNodeSource{
		Regions:       []string{"us-east1"},
		InstanceTypes: []*regexp.Regexp{regexp.MustCompile(`^n2-standard-8$`)},
		Aliases:       aliasTable(t),
	}
	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].GPUType)
	assert.Zero(t, records[0].GPUCount)
	assert.Equal(t, float64(32), records[0].RAMGB)
}

func TestGCPNodeSourceAttachedGPUVariants(t *testing.T) {
	s := &GCPNodeSource{
		Regions:       []string{"us-central1"},
		InstanceTypes: []*regexp.Regexp{regexp.MustCompile(`^n1-standard-(1|8)`)},
		Aliases:       aliasTable(t),
	}
	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)

	byName := lo.KeyBy(records, func(r catalog.NormalizedInstance) string { return r.InstanceType })
	require.Contains(t, byName, "n1-standard-8-gpu-nvidia-tesla-t4-2")
	t4 := byName["n1-standard-8-gpu-nvidia-tesla-t4-2"]
	assert.Equal(t, "T4", t4.GPUType)
	assert.Equal(t, 2, t4.GPUCount)
	assert.InDelta(t, byName["n1-standard-8"].ComputePricePerHour+0.70, t4.ComputePricePerHour, 1e-4)

	// too small for an attached GPU
	assert.NotContains(t, byName, "n1-standard-1-gpu-nvidia-tesla-t4-1")
}

func TestGCPNodeSourceRegionScoping(t *testing.T) {
	s := &GCPNodeSource{
		Regions:       []string{"europe-west4", "us-central1"},
		InstanceTypes: []*regexp.Regexp{regexp.MustCompile(`^a4-`)},
	}
	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, "us-central1", r.Region)
	}

	s.Regions = []string{"europe-west4"}
	_, err = s.FetchCatalog(context.Background())
	var pu *ProviderUnavailable
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, catalog.GCP, pu.Provider)
}

func TestGCPRegionMultiplier(t *testing.T) {
	central := gcpComputePrice("n2-standard-4", 4, 16, nil, "us-central1")
	europe := gcpComputePrice("n2-standard-4", 4, 16, nil, "europe-west4")
	assert.InDelta(t, central*1.10, europe, 1e-3)

	// unknown series falls back to the default rate
	assert.InDelta(t, 4*0.035+16*0.0045, gcpComputePrice("zz9-standard-4", 4, 16, nil, "mars-1"), 1e-4)
}

func TestGCPHelpers(t *testing.T) {
	assert.Equal(t, "us-central1", zoneRegion("us-central1-a"))
	assert.Equal(t, "europe-west4", zoneRegion("https://www.googleapis.com/compute/v1/projects/p/zones/europe-west4-b"))
	assert.Equal(t, "n2d", gcpSeries("n2d-standard-2"))
	assert.Equal(t, "Up to 1 Gbps", gcpNetworkPerformance("e2-small", 2))
	assert.Equal(t, "Up to 16 Gbps", gcpNetworkPerformance("n2-standard-32", 32))
}
