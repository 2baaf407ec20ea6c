package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
)

func TestRankByPrice(t *testing.T) {
	instances := []catalog.NormalizedInstance{
		newInstance(t, catalog.AWS, "r5.2xlarge", 8, 64, 0.504),
		newInstance(t, catalog.GCP, "e2-standard-8", 8, 32, 0.268),
		newInstance(t, catalog.AWS, "m5.2xlarge", 8, 32, 0.384),
	}

	ranked := Rank(instances, PreferPrice)
	assert.Equal(t, []string{"e2-standard-8", "m5.2xlarge", "r5.2xlarge"}, types(ranked))
	assert.Equal(t, "r5.2xlarge", instances[0].InstanceType, "input must not be reordered")
}

func TestRankByPriceTies(t *testing.T) {
	onDemand := newInstance(t, catalog.GCP, "n2-standard-8", 8, 32, 0.3)
	spot := newInstance(t, catalog.GCP, "n2-standard-8", 8, 32, 0.3, instanceOpts{pricing: catalog.Spot})
	gcp := newInstance(t, catalog.GCP, "c2-standard-8", 8, 32, 0.3)

	ranked := Rank([]catalog.NormalizedInstance{onDemand, gcp, spot}, PreferPrice)
	require.Len(t, ranked, 3)
	assert.Equal(t, catalog.Spot, ranked[0].PricingModel)
	assert.Equal(t, "c2-standard-8", ranked[1].InstanceType)
	assert.Equal(t, "n2-standard-8", ranked[2].InstanceType)
}

func inRegion(inst catalog.NormalizedInstance, region string) catalog.NormalizedInstance {
	inst.Region = region
	return inst
}

func regions(instances []catalog.NormalizedInstance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.Region
	}
	return out
}

func TestRankKeepsOrderOfEqualRecords(t *testing.T) {
	m5 := newInstance(t, catalog.AWS, "m5.2xlarge", 8, 32, 0.384)
	instances := []catalog.NormalizedInstance{
		inRegion(m5, "us-west-2"),
		newInstance(t, catalog.GCP, "e2-standard-8", 8, 32, 0.268),
		inRegion(m5, "eu-west-1"),
		inRegion(m5, "us-east-1"),
	}

	for _, p := range []Preference{PreferPrice, PreferPerformance} {
		t.Run(string(p), func(t *testing.T) {
			var equal []catalog.NormalizedInstance
			for _, inst := range Rank(instances, p) {
				if inst.InstanceType == "m5.2xlarge" {
					equal = append(equal, inst)
				}
			}
			assert.Equal(t, []string{"us-west-2", "eu-west-1", "us-east-1"}, regions(equal))
		})
	}
}

func TestRankByPerformance(t *testing.T) {
	instances := []catalog.NormalizedInstance{
		newInstance(t, catalog.AWS, "m5.2xlarge", 8, 32, 0.384),
		newInstance(t, catalog.AWS, "g4dn.xlarge", 4, 16, 0.526,
			instanceOpts{gpuType: "T4", gpus: 1}),
		newInstance(t, catalog.AWS, "m5.4xlarge", 16, 64, 0.768),
		newInstance(t, catalog.GCP, "n2-standard-16", 16, 64, 0.777),
	}

	ranked := Rank(instances, PreferPerformance)
	// g4dn: 4 + 1.6 + 50; 16 vcpu: 16 + 6.4; m5.2xlarge: 8 + 3.2
	assert.Equal(t, []string{"g4dn.xlarge", "m5.4xlarge", "n2-standard-16", "m5.2xlarge"}, types(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].PerformanceScore(), ranked[i].PerformanceScore())
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, PreferPrice))
}
