package search

import (
	"strings"

	"github.com/samber/lo"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
)

type predicate func(catalog.NormalizedInstance) bool

// Filter keeps the instances that satisfy c. An explicit instance type
// overrides every other constraint. c is expected to be normalized.
func Filter(instances []catalog.NormalizedInstance, c Criteria, aliases *gpualias.Table) []catalog.NormalizedInstance {
	if c.InstanceType != "" {
		return lo.Filter(instances, func(inst catalog.NormalizedInstance, _ int) bool {
			return inst.InstanceType == c.InstanceType
		})
	}

	rules := []predicate{
		func(inst catalog.NormalizedInstance) bool { return float64(inst.VCPU) >= c.VCPU },
		func(inst catalog.NormalizedInstance) bool { return inst.RAMGB >= c.RAMGB },
	}
	switch {
	case c.GPUType != "":
		rules = append(rules, gpuRule(c.GPUType, c.GPUCount, aliases))
	case c.GPUCount > 0:
		rules = append(rules, func(inst catalog.NormalizedInstance) bool { return inst.GPUCount >= c.GPUCount })
	}
	if c.StorageGB > 0 || c.StorageType != "" {
		rules = append(rules, storageRule(c.StorageGB, c.StorageType))
	}

	return lo.Filter(instances, func(inst catalog.NormalizedInstance, _ int) bool {
		for _, rule := range rules {
			if !rule(inst) {
				return false
			}
		}
		return true
	})
}

// gpuRule matches on the canonical family when the requested type resolves,
// and on a case-insensitive substring otherwise.
func gpuRule(gpuType string, count int, aliases *gpualias.Table) predicate {
	if aliases != nil {
		if family, ok := aliases.Resolve(gpuType); ok {
			return func(inst catalog.NormalizedInstance) bool {
				return inst.GPUCount >= count && aliases.Matches(family, inst.GPUType, inst.InstanceType)
			}
		}
	}
	needle := strings.ToLower(gpuType)
	return func(inst catalog.NormalizedInstance) bool {
		if inst.GPUCount < count {
			return false
		}
		return strings.Contains(strings.ToLower(inst.GPUType), needle) ||
			strings.Contains(strings.ToLower(inst.GPUModel), needle) ||
			strings.Contains(strings.ToLower(inst.InstanceType), needle)
	}
}

// storageRule needs a single option that is both of the requested type and
// large enough, so a size range never comes from a different disk type.
func storageRule(sizeGB float64, kind string) predicate {
	return func(inst catalog.NormalizedInstance) bool {
		return lo.SomeBy(inst.StorageOptions, func(o catalog.StorageOption) bool {
			if kind != "" && !o.Matches(kind) {
				return false
			}
			return sizeGB <= 0 || o.Supports(sizeGB)
		})
	}
}
