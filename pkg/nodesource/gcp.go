package nodesource

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
)

//go:embed gcp_machine_types.yaml
var gcpMachineTypesData []byte

type gcpMachineType struct {
	Name         string        `yaml:"name"`
	VCPU         int           `yaml:"vcpu"`
	MemoryGB     float64       `yaml:"memory_gb"`
	Arch         string        `yaml:"arch,omitempty"`
	Accelerators []accelerator `yaml:"accelerators,omitempty"`
	Regions      []string      `yaml:"regions,omitempty"`
}

func (m gcpMachineType) offeredIn(region string) bool {
	return len(m.Regions) == 0 || lo.Contains(m.Regions, region)
}

type gcpShapeFamily struct {
	Prefix          string   `yaml:"prefix"`
	Sizes           []int    `yaml:"sizes"`
	MemoryPerVCPUGB float64  `yaml:"memory_per_vcpu_gb"`
	Arch            string   `yaml:"arch,omitempty"`
	Regions         []string `yaml:"regions,omitempty"`
}

type gcpAttachable struct {
	Series      []string      `yaml:"series"`
	MinVCPU     int           `yaml:"min_vcpu"`
	MinMemoryGB float64       `yaml:"min_memory_gb"`
	Options     []accelerator `yaml:"options"`
}

type gcpCatalogFile struct {
	Version      string           `yaml:"version"`
	Families     []gcpShapeFamily `yaml:"families"`
	MachineTypes []gcpMachineType `yaml:"machine_types"`
	Attachable   gcpAttachable    `yaml:"attachable"`
}

// machineTypes expands the families and appends the irregular shapes.
func (f gcpCatalogFile) machineTypes() []gcpMachineType {
	var out []gcpMachineType
	for _, fam := range f.Families {
		for _, size := range fam.Sizes {
			out = append(out, gcpMachineType{
				Name:     fmt.Sprintf("%s-%d", fam.Prefix, size),
				VCPU:     size,
				MemoryGB: float64(size) * fam.MemoryPerVCPUGB,
				Arch:     fam.Arch,
				Regions:  fam.Regions,
			})
		}
	}
	return append(out, f.MachineTypes...)
}

// withAttachedGPUs adds one variant per attachable accelerator option to
// every eligible machine type without bundled accelerators.
func (a gcpAttachable) withAttachedGPUs(machines []gcpMachineType) []gcpMachineType {
	out := make([]gcpMachineType, 0, len(machines))
	for _, m := range machines {
		out = append(out, m)
		if len(m.Accelerators) > 0 || !lo.Contains(a.Series, gcpSeries(m.Name)) {
			continue
		}
		if m.VCPU < a.MinVCPU || m.MemoryGB < a.MinMemoryGB {
			continue
		}
		for _, opt := range a.Options {
			v := m
			v.Name = fmt.Sprintf("%s-gpu-%s-%d", m.Name, opt.Type, opt.Count)
			v.Accelerators = []accelerator{opt}
			out = append(out, v)
		}
	}
	return out
}

var (
	gcpCatalogOnce sync.Once
	gcpCatalog     gcpCatalogFile
	gcpCatalogErr  error
)

func embeddedGCPCatalog() (gcpCatalogFile, error) {
	gcpCatalogOnce.Do(func() {
		gcpCatalogErr = yaml.UnmarshalStrict(gcpMachineTypesData, &gcpCatalog)
		if gcpCatalogErr != nil {
			gcpCatalogErr = errors.Wrap(gcpCatalogErr, "could not parse embedded gcp machine types")
		}
	})
	return gcpCatalog, gcpCatalogErr
}

// GCPNodeSource serves the embedded Compute Engine machine-type table, priced
// from per-series component rates.
type GCPNodeSource struct {
	Regions       []string
	InstanceTypes []*regexp.Regexp
	Spot          bool
	Aliases       *gpualias.Table
}

func (s *GCPNodeSource) Name() catalog.Provider {
	return catalog.GCP
}

func (s *GCPNodeSource) FetchCatalog(ctx context.Context) ([]catalog.NormalizedInstance, error) {
	file, err := embeddedGCPCatalog()
	if err != nil {
		return nil, Unavailable(catalog.GCP, err)
	}

	regions := regionsOrDefault(s.Regions, DefaultGCPRegions)
	machines := file.Attachable.withAttachedGPUs(file.machineTypes())

	var out []catalog.NormalizedInstance
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, Unavailable(catalog.GCP, err)
		}
		for _, m := range machines {
			if !m.offeredIn(region) || !matchesAny(m.Name, s.InstanceTypes) {
				continue
			}
			records, err := gcpRecords(s.Aliases, m, region, s.Spot)
			if err != nil {
				logger.Debugf("Skipping %s in %s: %s", m.Name, region, err)
				continue
			}
			out = append(out, records...)
		}
	}

	if len(out) == 0 {
		return nil, Unavailable(catalog.GCP, errors.Wrapf(errEmptyCatalog, "no machine types in %s", strings.Join(regions, ",")))
	}
	sortCatalog(out)
	return out, nil
}

// gcpRecords normalizes one machine type in one region. GPUs come only from
// explicit accelerators.
func gcpRecords(aliases *gpualias.Table, m gcpMachineType, region string, spot bool) ([]catalog.NormalizedInstance, error) {
	var gpuType, gpuModel string
	var gpuCount int
	var vram float64
	for _, a := range m.Accelerators {
		if a.Count <= 0 {
			continue
		}
		gpuCount += a.Count
		if gpuModel != "" {
			continue
		}
		gpuModel = a.Type
		gpuType = a.Type
		if aliases != nil {
			if fam, ok := aliases.FamilyForAccelerator(a.Type); ok {
				gpuType = fam.Name
				vram = fam.VRAMGB * float64(a.Count)
			}
		}
	}

	var arch []string
	if m.Arch != "" {
		arch = []string{m.Arch}
	} else {
		arch = []string{"x86_64"}
	}

	onDemand := gcpComputePrice(m.Name, m.VCPU, m.MemoryGB, m.Accelerators, region)
	spec := catalog.Spec{
		Provider:            catalog.GCP,
		InstanceType:        m.Name,
		Family:              gcpSeries(m.Name),
		Region:              region,
		Location:            catalog.RegionLocation(catalog.GCP, region),
		VCPU:                m.VCPU,
		RAMGB:               m.MemoryGB,
		Arch:                arch,
		GPUType:             gpuType,
		GPUModel:            gpuModel,
		GPUCount:            gpuCount,
		VRAMGB:              vram,
		NetworkPerformance:  gcpNetworkPerformance(m.Name, m.VCPU),
		StorageOptions:      catalog.GCPStorageOptions(),
		DefaultStorage:      catalog.GCPDefaultStorage(),
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

	spec.ComputePricePerHour = round4(onDemand * spotFactor(gcpSpotFactor, region, defaultGCPSpotFactor))
	spec.PricingModel = catalog.Spot
	sp, err := catalog.NewInstance(spec)
	if err != nil {
		return nil, err
	}
	return []catalog.NormalizedInstance{od, sp}, nil
}
