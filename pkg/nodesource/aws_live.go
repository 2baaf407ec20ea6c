package nodesource

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	ec2instancesinfo "github.com/cristim/ec2-instances-info"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
)

// EC2API is the part of the EC2 client the live source needs.
type EC2API interface {
	ec2.DescribeInstanceTypesAPIClient
	ec2.DescribeSpotPriceHistoryAPIClient
}

// PriceFunc returns the Linux OnDemand hourly price of an instance type.
type PriceFunc func(instanceType, region string) (float64, bool)

// AWSLiveNodeSource describes instance types and spot prices through the EC2
// API. EC2 has no OnDemand price call, so those come from OnDemandPrice.
type AWSLiveNodeSource struct {
	Regions       []string
	InstanceTypes []*regexp.Regexp
	Spot          bool
	Aliases       *gpualias.Table
	NewClient     func(region string) EC2API
	OnDemandPrice PriceFunc

	// now is stubbed in tests
	now func() time.Time
}

func (s *AWSLiveNodeSource) Name() catalog.Provider {
	return catalog.AWS
}

func (s *AWSLiveNodeSource) FetchCatalog(ctx context.Context) ([]catalog.NormalizedInstance, error) {
	if s.NewClient == nil {
		return nil, Unavailable(catalog.AWS, errors.New("no ec2 client configured"))
	}
	price := s.OnDemandPrice
	if price == nil {
		var err error
		price, err = EC2InstancesInfoPrices()
		if err != nil {
			return nil, Unavailable(catalog.AWS, err)
		}
	}

	var out []catalog.NormalizedInstance
	for _, region := range regionsOrDefault(s.Regions, DefaultAWSRegions) {
		records, err := s.fetchRegion(ctx, s.NewClient(region), region, price)
		if err != nil {
			return nil, Unavailable(catalog.AWS, errors.Wrapf(err, "region %s", region))
		}
		out = append(out, records...)
	}
	if len(out) == 0 {
		return nil, Unavailable(catalog.AWS, errEmptyCatalog)
	}
	sortCatalog(out)
	return out, nil
}

func (s *AWSLiveNodeSource) fetchRegion(ctx context.Context, client EC2API, region string, price PriceFunc) ([]catalog.NormalizedInstance, error) {
	shapes, err := describeShapes(ctx, client, s.InstanceTypes)
	if err != nil {
		return nil, err
	}

	var spot map[string]float64
	if s.Spot && len(shapes) > 0 {
		now := time.Now
		if s.now != nil {
			now = s.now
		}
		names := lo.Map(shapes, func(sh awsShape, _ int) string { return sh.InstanceType })
		spot, err = latestSpotPrices(ctx, client, names, now().Add(-time.Hour))
		if err != nil {
			return nil, err
		}
	}

	var out []catalog.NormalizedInstance
	for _, shape := range shapes {
		onDemand, ok := price(shape.InstanceType, region)
		if !ok || onDemand <= 0 {
			logger.Debugf("No OnDemand price for %s in %s", shape.InstanceType, region)
			continue
		}
		spotPrice, hasSpot := spot[shape.InstanceType]
		records, err := awsRecords(s.Aliases, shape, region, onDemand, spotPrice, s.Spot && hasSpot)
		if err != nil {
			logger.Debugf("Skipping %s in %s: %s", shape.InstanceType, region, err)
			continue
		}
		out = append(out, records...)
	}
	return out, nil
}

func describeShapes(ctx context.Context, client ec2.DescribeInstanceTypesAPIClient, patterns []*regexp.Regexp) ([]awsShape, error) {
	input := &ec2.DescribeInstanceTypesInput{
		Filters: []types.Filter{
			{Name: aws.String("current-generation"), Values: []string{"true"}},
		},
	}

	var shapes []awsShape
	paginator := ec2.NewDescribeInstanceTypesPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "describing instance types")
		}
		for _, it := range page.InstanceTypes {
			name := string(it.InstanceType)
			if !matchesAny(name, patterns) || it.VCpuInfo == nil || it.MemoryInfo == nil {
				continue
			}
			shape := awsShape{
				InstanceType: name,
				VCPU:         int(aws.ToInt32(it.VCpuInfo.DefaultVCpus)),
				MemoryGB:     float64(aws.ToInt64(it.MemoryInfo.SizeInMiB)) / 1024,
			}
			if it.GpuInfo != nil {
				for _, gpu := range it.GpuInfo.Gpus {
					shape.GPUCount += int(aws.ToInt32(gpu.Count))
					if shape.GPUModel == "" {
						shape.GPUModel = aws.ToString(gpu.Name)
					}
				}
			}
			if it.NetworkInfo != nil {
				shape.Network = aws.ToString(it.NetworkInfo.NetworkPerformance)
			}
			if it.ProcessorInfo != nil {
				for _, arch := range it.ProcessorInfo.SupportedArchitectures {
					shape.Arch = append(shape.Arch, string(arch))
				}
			}
			shapes = append(shapes, shape)
		}
	}
	return shapes, nil
}

// latestSpotPrices returns the most recent Linux spot price of each type,
// keeping the cheapest zone of the region.
func latestSpotPrices(ctx context.Context, client ec2.DescribeSpotPriceHistoryAPIClient, instanceTypes []string, since time.Time) (map[string]float64, error) {
	type key struct {
		itype string
		az    string
	}
	latest := map[key]types.SpotPrice{}

	for _, batch := range lo.Chunk(instanceTypes, 100) {
		input := &ec2.DescribeSpotPriceHistoryInput{
			InstanceTypes: lo.Map(batch, func(t string, _ int) types.InstanceType {
				return types.InstanceType(t)
			}),
			StartTime:           aws.Time(since),
			ProductDescriptions: []string{"Linux/UNIX"},
		}
		paginator := ec2.NewDescribeSpotPriceHistoryPaginator(client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "describing spot price history")
			}
			for _, sp := range page.SpotPriceHistory {
				k := key{string(sp.InstanceType), aws.ToString(sp.AvailabilityZone)}
				existing, ok := latest[k]
				if !ok || aws.ToTime(sp.Timestamp).After(aws.ToTime(existing.Timestamp)) {
					latest[k] = sp
				}
			}
		}
	}

	out := map[string]float64{}
	for k, sp := range latest {
		p, err := strconv.ParseFloat(aws.ToString(sp.SpotPrice), 64)
		if err != nil || p <= 0 {
			continue
		}
		if cur, ok := out[k.itype]; !ok || p < cur {
			out[k.itype] = p
		}
	}
	return out, nil
}

// EC2InstancesInfoPrices indexes the bundled ec2-instances-info price table.
func EC2InstancesInfoPrices() (PriceFunc, error) {
	instances, err := ec2instancesinfo.Data()
	if err != nil {
		return nil, errors.Wrap(err, "could not get ec2 instances info")
	}
	index := map[string]map[string]float64{}
	for _, instance := range *instances {
		byRegion := map[string]float64{}
		for region, prices := range instance.Pricing {
			byRegion[region] = prices.Linux.OnDemand
		}
		index[instance.InstanceType] = byRegion
	}
	return func(instanceType, region string) (float64, bool) {
		p, ok := index[instanceType][region]
		return p, ok
	}, nil
}
