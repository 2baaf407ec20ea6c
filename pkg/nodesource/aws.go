package nodesource

import (
	"context"
	"regexp"
	"sort"
	"strings"

	ec2instancesinfo "github.com/cristim/ec2-instances-info"
	"github.com/pkg/errors"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
)

// awsShape is the hardware description of an EC2 instance type, whichever
// catalog it was read from.
type awsShape struct {
	InstanceType string
	VCPU         int
	MemoryGB     float64
	GPUCount     int
	GPUModel     string
	Arch         []string
	Network      string
}

// AWSNodeSource serves the EC2 catalog bundled with ec2-instances-info.
type AWSNodeSource struct {
	Regions       []string
	InstanceTypes []*regexp.Regexp
	Spot          bool
	Aliases       *gpualias.Table

	// data defaults to ec2instancesinfo.Data
	data func() (*ec2instancesinfo.InstanceData, error)
}

func (s *AWSNodeSource) Name() catalog.Provider {
	return catalog.AWS
}

func (s *AWSNodeSource) FetchCatalog(ctx context.Context) ([]catalog.NormalizedInstance, error) {
	load := s.data
	if load == nil {
		load = ec2instancesinfo.Data
	}
	instances, err := load()
	if err != nil {
		return nil, Unavailable(catalog.AWS, errors.Wrap(err, "could not get ec2 instances info"))
	}

	regions := regionsOrDefault(s.Regions, DefaultAWSRegions)
	var out []catalog.NormalizedInstance
	for _, instance := range *instances {
		if err := ctx.Err(); err != nil {
			return nil, Unavailable(catalog.AWS, err)
		}
		if !matchesAny(instance.InstanceType, s.InstanceTypes) {
			continue
		}
		shape := awsShape{
			InstanceType: instance.InstanceType,
			VCPU:         instance.VCPU,
			MemoryGB:     float64(instance.Memory),
			GPUCount:     instance.GPU,
			Arch:         instance.Arch,
		}
		for _, region := range regions {
			prices, ok := instance.Pricing[region]
			if !ok || prices.Linux.OnDemand <= 0 {
				// not offered in this region
				continue
			}
			records, err := awsRecords(s.Aliases, shape, region, prices.Linux.OnDemand, 0, s.Spot)
			if err != nil {
				logger.Debugf("Skipping %s in %s: %s", instance.InstanceType, region, err)
				continue
			}
			out = append(out, records...)
		}
	}

	if len(out) == 0 {
		return nil, Unavailable(catalog.AWS, errors.Wrapf(errEmptyCatalog, "no instances in %s", strings.Join(regions, ",")))
	}
	sortCatalog(out)
	return out, nil
}

// awsRecords builds the OnDemand record of a shape in a region and, when spot
// is set, its Spot counterpart. A spotPrice of zero is estimated from the
// regional discount table.
func awsRecords(aliases *gpualias.Table, shape awsShape, region string, onDemand, spotPrice float64, spot bool) ([]catalog.NormalizedInstance, error) {
	gpuType, gpuCount, vram := awsGPU(aliases, shape)
	family, _, _ := strings.Cut(shape.InstanceType, ".")

	spec := catalog.Spec{
		Provider:            catalog.AWS,
		InstanceType:        shape.InstanceType,
		Family:              family,
		Region:              region,
		Location:            catalog.RegionLocation(catalog.AWS, region),
		VCPU:                shape.VCPU,
		RAMGB:               shape.MemoryGB,
		Arch:                shape.Arch,
		GPUType:             gpuType,
		GPUModel:            shape.GPUModel,
		GPUCount:            gpuCount,
		VRAMGB:              vram,
		NetworkPerformance:  shape.Network,
		StorageOptions:      catalog.AWSStorageOptions(),
		DefaultStorage:      catalog.AWSDefaultStorage(),
		ComputePricePerHour: onDemand,
		PricingModel:        catalog.OnDemand,
	}
	od, err := catalog.NewInstance(spec)
	if err != nil {
		return nil, err
	}
	if !spot {
		return []catalog.NormalizedInstance{od}, nil
	}

	if spotPrice <= 0 {
		spotPrice = round4(onDemand * spotFactor(awsSpotFactor, region, defaultAWSSpotFactor))
	}
	spec.ComputePricePerHour = spotPrice
	spec.PricingModel = catalog.Spot
	sp, err := catalog.NewInstance(spec)
	if err != nil {
		return nil, err
	}
	return []catalog.NormalizedInstance{od, sp}, nil
}

// awsGPU derives the canonical GPU family and count from the instance-family
// code, falling back to what the catalog reports.
func awsGPU(aliases *gpualias.Table, shape awsShape) (string, int, float64) {
	if aliases != nil {
		if fam, ok := aliases.FamilyForAWSInstance(shape.InstanceType); ok {
			count, ok := fam.AWSGPUCount(shape.InstanceType)
			if !ok {
				count = shape.GPUCount
			}
			if count > 0 {
				return fam.Name, count, fam.VRAMGB * float64(count)
			}
		}
		if shape.GPUCount > 0 && shape.GPUModel != "" {
			if fam, ok := aliases.Resolve(shape.GPUModel); ok {
				return fam.Name, shape.GPUCount, fam.VRAMGB * float64(shape.GPUCount)
			}
		}
	}
	if shape.GPUCount <= 0 {
		return "", 0, 0
	}
	if shape.GPUModel != "" {
		return shape.GPUModel, shape.GPUCount, 0
	}
	family, _, _ := strings.Cut(shape.InstanceType, ".")
	return strings.ToUpper(family), shape.GPUCount, 0
}

// sortCatalog gives every catalog a stable order independent of map
// iteration in the upstream data.
func sortCatalog(instances []catalog.NormalizedInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.InstanceType != b.InstanceType {
			return a.InstanceType < b.InstanceType
		}
		return a.PricingModel < b.PricingModel
	})
}
