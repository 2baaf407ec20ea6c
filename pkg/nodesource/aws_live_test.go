package nodesource

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
)

type fakeEC2 struct {
	typePages []*ec2.DescribeInstanceTypesOutput
	spot      []types.SpotPrice
	typesErr  error
	calls     int
}

func (f *fakeEC2) DescribeInstanceTypes(_ context.Context, in *ec2.DescribeInstanceTypesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error) {
	if f.typesErr != nil {
		return nil, f.typesErr
	}
	page := 0
	if in.NextToken != nil {
		page = 1
	}
	f.calls++
	return f.typePages[page], nil
}

func (f *fakeEC2) DescribeSpotPriceHistory(_ context.Context, in *ec2.DescribeSpotPriceHistoryInput, _ ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
	var out []types.SpotPrice
	for _, sp := range f.spot {
		for _, t := range in.InstanceTypes {
			if sp.InstanceType == t {
				out = append(out, sp)
			}
		}
	}
	return &ec2.DescribeSpotPriceHistoryOutput{SpotPriceHistory: out}, nil
}

func instanceTypeInfo(name string, vcpu int32, memMiB int64, gpus int32, gpuName string) types.InstanceTypeInfo {
	info := types.InstanceTypeInfo{
		InstanceType:  types.InstanceType(name),
		VCpuInfo:      &types.VCpuInfo{DefaultVCpus: aws.Int32(vcpu)},
		MemoryInfo:    &types.MemoryInfo{SizeInMiB: aws.Int64(memMiB)},
		NetworkInfo:   &types.NetworkInfo{NetworkPerformance: aws.String("Up to 10 Gigabit")},
		ProcessorInfo: &types.ProcessorInfo{SupportedArchitectures: []types.ArchitectureType{types.ArchitectureTypeX8664}},
	}
	if gpus > 0 {
		info.GpuInfo = &types.GpuInfo{Gpus: []types.GpuDeviceInfo{{Count: aws.Int32(gpus), Name: aws.String(gpuName)}}}
	}
	return info
}

func spotPrice(name, az, price string, at time.Time) types.SpotPrice {
	return types.SpotPrice{
		InstanceType:     types.InstanceType(name),
		AvailabilityZone: aws.String(az),
		SpotPrice:        aws.String(price),
		Timestamp:        aws.Time(at),
	}
}

func TestAWSLiveNodeSource(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeEC2{
		typePages: []*ec2.DescribeInstanceTypesOutput{
			{
				InstanceTypes: []types.InstanceTypeInfo{instanceTypeInfo("m5.large", 2, 8192, 0, "")},
				NextToken:     aws.String("page-2"),
			},
			{
				InstanceTypes: []types.InstanceTypeInfo{
					instanceTypeInfo("p4d.24xlarge", 96, 1179648, 8, "A100"),
					instanceTypeInfo("x9.unpriced", 2, 2048, 0, ""),
				},
			},
		},
		spot: []types.SpotPrice{
			spotPrice("m5.large", "us-east-1a", "0.0400", now.Add(-30*time.Minute)),
			spotPrice("m5.large", "us-east-1a", "0.0350", now.Add(-5*time.Minute)),
			spotPrice("m5.large", "us-east-1b", "0.0380", now.Add(-10*time.Minute)),
		},
	}
	prices := map[string]float64{"m5.large": 0.096, "p4d.24xlarge": 32.7726}

	s := &AWSLiveNodeSource{
		Regions:   []string{"us-east-1"},
		Spot:      true,
		Aliases:   aliasTable(t),
		NewClient: func(string) EC2API { return client },
		OnDemandPrice: func(instanceType, region string) (float64, bool) {
			p, ok := prices[instanceType]
			return p, ok && region == "us-east-1"
		},
		now: func() time.Time { return now },
	}

	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)

	// m5.large OnDemand + Spot, p4d OnDemand only (no spot history)
	require.Len(t, records, 3)
	assert.Equal(t, "m5.large", records[0].InstanceType)
	assert.Equal(t, catalog.OnDemand, records[0].PricingModel)
	assert.Equal(t, "Up to 10 Gigabit", records[0].NetworkPerformance)
	assert.Equal(t, []string{"x86_64"}, records[0].Arch)

	assert.Equal(t, catalog.Spot, records[1].PricingModel)
	// latest per zone, cheapest zone wins
	assert.Equal(t, 0.035, records[1].ComputePricePerHour)

	assert.Equal(t, "p4d.24xlarge", records[2].InstanceType)
	assert.Equal(t, "A100", records[2].GPUType)
	assert.Equal(t, 8, records[2].GPUCount)
	assert.InDelta(t, 1152, records[2].RAMGB, 1e-9)
}

func TestAWSLiveNodeSourceFailure(t *testing.T) {
	s := &AWSLiveNodeSource{
		NewClient:     func(string) EC2API { return &fakeEC2{typesErr: errors.New("UnauthorizedOperation")} },
		OnDemandPrice: func(string, string) (float64, bool) { return 1, true },
	}
	_, err := s.FetchCatalog(context.Background())
	var pu *ProviderUnavailable
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, catalog.AWS, pu.Provider)
	assert.Contains(t, err.Error(), "UnauthorizedOperation")

	_, err = (&AWSLiveNodeSource{}).FetchCatalog(context.Background())
	assert.True(t, errors.As(err, &pu))
}
