package search

import (
	"sort"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
)

// Rank returns a sorted copy of instances. The sort is stable, so instances
// equal on every key keep their merge order.
func Rank(instances []catalog.NormalizedInstance, p Preference) []catalog.NormalizedInstance {
	out := make([]catalog.NormalizedInstance, len(instances))
	copy(out, instances)

	less := byPrice
	if p == PreferPerformance {
		less = byPerformance
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// byPrice: cheapest first, Spot before OnDemand at equal price.
func byPrice(a, b catalog.NormalizedInstance) bool {
	if a.TotalPricePerHour != b.TotalPricePerHour {
		return a.TotalPricePerHour < b.TotalPricePerHour
	}
	if a.PricingModel != b.PricingModel {
		return a.PricingModel == catalog.Spot
	}
	return byName(a, b)
}

// byPerformance: highest score first, then cheapest.
func byPerformance(a, b catalog.NormalizedInstance) bool {
	sa, sb := a.PerformanceScore(), b.PerformanceScore()
	if sa != sb {
		return sa > sb
	}
	if a.TotalPricePerHour != b.TotalPricePerHour {
		return a.TotalPricePerHour < b.TotalPricePerHour
	}
	return byName(a, b)
}

func byName(a, b catalog.NormalizedInstance) bool {
	if a.Provider != b.Provider {
		return a.Provider < b.Provider
	}
	return a.InstanceType < b.InstanceType
}
