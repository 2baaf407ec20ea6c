package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Provider string

const (
	AWS Provider = "AWS"
	GCP Provider = "GCP"
)

type PricingModel string

const (
	OnDemand PricingModel = "OnDemand"
	Spot     PricingModel = "Spot"
)

// HoursPerMonth converts monthly storage prices into hourly ones (24*30).
const HoursPerMonth = 24 * 30

var ErrInvalidInstance = errors.New("invalid instance")

// NormalizedInstance is a single priced offering (type, region, pricing model)
// in the provider-independent shape shared by every node source. Values are
// built with NewInstance and treated as read-only afterwards.
type NormalizedInstance struct {
	Provider            Provider        `json:"provider"`
	InstanceType        string          `json:"instance_type"`
	Family              string          `json:"family,omitempty"`
	Region              string          `json:"region"`
	Location            string          `json:"location,omitempty"`
	VCPU                int             `json:"vcpu"`
	RAMGB               float64         `json:"ram_gb"`
	Arch                []string        `json:"arch,omitempty"`
	GPUType             string          `json:"gpu_type"`
	GPUModel            string          `json:"gpu_model,omitempty"`
	GPUCount            int             `json:"gpu_count"`
	VRAMGB              float64         `json:"vram_gb,omitempty"`
	NetworkPerformance  string          `json:"network_performance,omitempty"`
	StorageOptions      []StorageOption `json:"storage_options"`
	DefaultStorageGB    float64         `json:"default_storage_gb"`
	ComputePricePerHour float64         `json:"compute_price_per_hour"`
	PricingModel        PricingModel    `json:"pricing_model"`
	TotalPricePerHour   float64         `json:"total_price_per_hour"`
	Currency            string          `json:"currency"`
}

// Spec carries the raw values a node source extracted from its catalog.
type Spec struct {
	Provider            Provider
	InstanceType        string
	Family              string
	Region              string
	Location            string
	VCPU                int
	RAMGB               float64
	Arch                []string
	GPUType             string
	GPUModel            string
	GPUCount            int
	VRAMGB              float64
	NetworkPerformance  string
	StorageOptions      []StorageOption
	DefaultStorage      StorageDefault
	ComputePricePerHour float64
	PricingModel        PricingModel
}

// StorageDefault is the disk every instance is assumed to boot with.
type StorageDefault struct {
	SizeGB          float64
	PricePerGBMonth float64
}

// NewInstance validates s and derives the total hourly price:
// compute + default_storage_gb * default_price_per_gb_month / (24*30).
func NewInstance(s Spec) (NormalizedInstance, error) {
	if s.Provider != AWS && s.Provider != GCP {
		return NormalizedInstance{}, errors.Wrapf(ErrInvalidInstance, "unknown provider %q", s.Provider)
	}
	if s.InstanceType == "" {
		return NormalizedInstance{}, errors.Wrap(ErrInvalidInstance, "empty instance type")
	}
	if s.PricingModel != OnDemand && s.PricingModel != Spot {
		return NormalizedInstance{}, errors.Wrapf(ErrInvalidInstance, "%s: unknown pricing model %q", s.InstanceType, s.PricingModel)
	}
	for name, v := range map[string]float64{
		"vcpu":                   float64(s.VCPU),
		"ram_gb":                 s.RAMGB,
		"gpu_count":              float64(s.GPUCount),
		"vram_gb":                s.VRAMGB,
		"compute_price_per_hour": s.ComputePricePerHour,
		"default_storage_gb":     s.DefaultStorage.SizeGB,
		"default_storage_price":  s.DefaultStorage.PricePerGBMonth,
	} {
		if v < 0 {
			return NormalizedInstance{}, errors.Wrapf(ErrInvalidInstance, "%s: negative %s (%v)", s.InstanceType, name, v)
		}
	}
	if (s.GPUCount > 0) != (s.GPUType != "") {
		return NormalizedInstance{}, errors.Wrapf(ErrInvalidInstance,
			"%s: gpu_type %q inconsistent with gpu_count %d", s.InstanceType, s.GPUType, s.GPUCount)
	}

	storage := make([]StorageOption, len(s.StorageOptions))
	copy(storage, s.StorageOptions)

	return NormalizedInstance{
		Provider:            s.Provider,
		InstanceType:        s.InstanceType,
		Family:              s.Family,
		Region:              s.Region,
		Location:            s.Location,
		VCPU:                s.VCPU,
		RAMGB:               s.RAMGB,
		Arch:                s.Arch,
		GPUType:             s.GPUType,
		GPUModel:            s.GPUModel,
		GPUCount:            s.GPUCount,
		VRAMGB:              s.VRAMGB,
		NetworkPerformance:  s.NetworkPerformance,
		StorageOptions:      storage,
		DefaultStorageGB:    s.DefaultStorage.SizeGB,
		ComputePricePerHour: s.ComputePricePerHour,
		PricingModel:        s.PricingModel,
		TotalPricePerHour:   TotalPricePerHour(s.ComputePricePerHour, s.DefaultStorage),
		Currency:            "USD",
	}, nil
}

// TotalPricePerHour applies the same formula to every provider so prices
// compare across catalogs.
func TotalPricePerHour(compute float64, d StorageDefault) float64 {
	return compute + d.SizeGB*d.PricePerGBMonth/HoursPerMonth
}

// PerformanceScore weighs GPUs far above CPU and memory.
func (n NormalizedInstance) PerformanceScore() float64 {
	return float64(n.VCPU)*1 + n.RAMGB*0.1 + float64(n.GPUCount)*50
}

func (n NormalizedInstance) HasGPU() bool {
	return n.GPUCount > 0
}

func (n NormalizedInstance) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", n.Provider, n.Region, n.InstanceType, n.PricingModel)
}

// MarshalJSON renders a missing GPU as null.
func (n NormalizedInstance) MarshalJSON() ([]byte, error) {
	type plain NormalizedInstance
	out := struct {
		plain
		GPUType *string `json:"gpu_type"`
	}{plain: plain(n)}
	if n.GPUType != "" {
		gpu := n.GPUType
		out.GPUType = &gpu
	}
	return json.Marshal(out)
}
