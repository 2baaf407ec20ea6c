package nodesource

import (
	"math"
	"strings"
)

var (
	DefaultAWSRegions = []string{"us-east-1", "us-west-2", "eu-west-1"}
	DefaultGCPRegions = []string{"us-central1", "us-east1", "europe-west4"}
)

// Spot prices are estimated as a fraction of the OnDemand price.
var awsSpotFactor = map[string]float64{
	"us-east-1":      0.70,
	"us-east-2":      0.75,
	"us-west-1":      0.72,
	"us-west-2":      0.70,
	"eu-central-1":   0.65,
	"eu-west-1":      0.70,
	"eu-west-2":      0.72,
	"ap-south-1":     0.75,
	"ap-northeast-1": 0.70,
	"ap-northeast-2": 0.72,
	"ap-southeast-1": 0.75,
	"ap-southeast-2": 0.72,
	"sa-east-1":      0.75,
}

var gcpSpotFactor = map[string]float64{
	"us-central1":     0.75,
	"us-east1":        0.75,
	"us-west1":        0.80,
	"europe-west1":    0.70,
	"europe-west4":    0.75,
	"asia-east1":      0.70,
	"asia-southeast1": 0.80,
}

const (
	defaultAWSSpotFactor = 0.70
	defaultGCPSpotFactor = 0.75
)

func spotFactor(table map[string]float64, region string, def float64) float64 {
	if f, ok := table[region]; ok {
		return f
	}
	return def
}

type componentRate struct {
	cpuPerHour float64
	memPerHour float64
}

// us-central1 list prices per vCPU-hour and GB-hour.
var gcpSeriesRates = map[string]componentRate{
	"e2":  {0.021811, 0.002923},
	"n1":  {0.031611, 0.004237},
	"n2":  {0.031611, 0.004237},
	"n2d": {0.027502, 0.003686},
	"n4":  {0.02830, 0.00379},
	"c2":  {0.03398, 0.004554},
	"c2d": {0.02909, 0.003898},
	"c3":  {0.03616, 0.00484},
	"c3d": {0.03245, 0.00435},
	"c4":  {0.03810, 0.00510},
	"h3":  {0.03535, 0.00473},
	"m1":  {0.043, 0.0058},
	"m2":  {0.050, 0.0068},
	"m3":  {0.03710, 0.00890},
	"t2d": {0.027502, 0.003686},
	"t2a": {0.0245, 0.00328},
	"a2":  {0.031611, 0.004237},
	"a3":  {0.031611, 0.004237},
	"a4":  {0.031611, 0.004237},
	"g2":  {0.031611, 0.004237},
}

var defaultSeriesRate = componentRate{cpuPerHour: 0.035, memPerHour: 0.0045}

// Per accelerator hour.
var gcpAcceleratorRates = map[string]float64{
	"nvidia-tesla-a100":     2.934,
	"nvidia-a100-80gb":      3.93,
	"nvidia-h100-80gb":      11.06,
	"nvidia-h100-mega-80gb": 11.76,
	"nvidia-h200-141gb":     13.05,
	"nvidia-b200":           16.90,
	"nvidia-tesla-v100":     2.48,
	"nvidia-tesla-p100":     1.46,
	"nvidia-tesla-p4":       0.60,
	"nvidia-tesla-t4":       0.35,
	"nvidia-tesla-k80":      0.45,
	"nvidia-l4":             0.70,
}

var gcpRegionMultiplier = map[string]float64{
	"us-central1":          1.00,
	"us-east1":             1.00,
	"us-east4":             1.10,
	"us-west1":             1.00,
	"us-west2":             1.20,
	"us-west3":             1.20,
	"us-west4":             1.10,
	"europe-west1":         1.10,
	"europe-west2":         1.15,
	"europe-west3":         1.15,
	"europe-west4":         1.10,
	"europe-west6":         1.25,
	"asia-east1":           1.10,
	"asia-east2":           1.20,
	"asia-northeast1":      1.15,
	"asia-northeast2":      1.15,
	"asia-northeast3":      1.15,
	"asia-south1":          1.08,
	"asia-southeast1":      1.10,
	"asia-southeast2":      1.15,
	"australia-southeast1": 1.20,
	"southamerica-east1":   1.30,
}

type accelerator struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// gcpComputePrice prices a machine type from its components.
func gcpComputePrice(machineType string, vcpu int, ramGB float64, accels []accelerator, region string) float64 {
	rate, ok := gcpSeriesRates[gcpSeries(machineType)]
	if !ok {
		rate = defaultSeriesRate
	}
	price := rate.cpuPerHour*float64(vcpu) + rate.memPerHour*ramGB
	for _, a := range accels {
		price += gcpAcceleratorRates[strings.ToLower(a.Type)] * float64(a.Count)
	}
	if mult, ok := gcpRegionMultiplier[region]; ok {
		price *= mult
	}
	return round4(price)
}

// "n2-standard-4" -> "n2"
func gcpSeries(machineType string) string {
	series, _, _ := strings.Cut(machineType, "-")
	return series
}

func gcpNetworkPerformance(machineType string, vcpu int) string {
	switch {
	case strings.HasPrefix(machineType, "a2-"), strings.HasPrefix(machineType, "a3-"),
		strings.HasPrefix(machineType, "a4-"), strings.HasPrefix(machineType, "g2-"):
		return "Up to 100 Gbps"
	case strings.HasPrefix(machineType, "c2-"), strings.HasPrefix(machineType, "c3-"):
		return "Up to 32 Gbps"
	case vcpu >= 32:
		return "Up to 16 Gbps"
	case vcpu >= 16:
		return "Up to 10 Gbps"
	case vcpu >= 8:
		return "Up to 5 Gbps"
	case vcpu >= 4:
		return "Up to 2 Gbps"
	default:
		return "Up to 1 Gbps"
	}
}

// zoneRegion strips the zone letter: "us-central1-a" -> "us-central1".
func zoneRegion(zone string) string {
	if i := strings.LastIndex(zone, "/"); i >= 0 {
		zone = zone[i+1:]
	}
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
