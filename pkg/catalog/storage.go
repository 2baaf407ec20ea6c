package catalog

import "strings"

// StorageOption is a disk type an instance can attach, with the size range
// the provider accepts for it.
type StorageOption struct {
	Type            string  `json:"type"`
	Class           string  `json:"class"`
	MinGB           float64 `json:"min_gb"`
	MaxGB           float64 `json:"max_gb"`
	PricePerGBMonth float64 `json:"price_per_gb_month"`
}

func (o StorageOption) Supports(sizeGB float64) bool {
	return sizeGB >= o.MinGB && sizeGB <= o.MaxGB
}

// Matches reports whether kind names this option's type ("gp3", "pd-ssd"),
// compared case-insensitively. A generic class ("ssd", "hdd") is also
// accepted.
func (o StorageOption) Matches(kind string) bool {
	return strings.EqualFold(o.Type, kind) || strings.EqualFold(o.Class, kind)
}

// AWSStorageOptions lists the EBS volume types offered with every EC2 type.
func AWSStorageOptions() []StorageOption {
	return []StorageOption{
		{Type: "gp3", Class: "ssd", MinGB: 1, MaxGB: 16384, PricePerGBMonth: 0.08},
		{Type: "gp2", Class: "ssd", MinGB: 1, MaxGB: 16384, PricePerGBMonth: 0.10},
		{Type: "io2", Class: "ssd", MinGB: 4, MaxGB: 65536, PricePerGBMonth: 0.125},
		{Type: "st1", Class: "hdd", MinGB: 125, MaxGB: 16384, PricePerGBMonth: 0.045},
		{Type: "sc1", Class: "hdd", MinGB: 125, MaxGB: 16384, PricePerGBMonth: 0.015},
	}
}

// AWSDefaultStorage is an 8 GB gp3 root volume.
func AWSDefaultStorage() StorageDefault {
	return StorageDefault{SizeGB: 8, PricePerGBMonth: 0.08}
}

func GCPStorageOptions() []StorageOption {
	return []StorageOption{
		{Type: "pd-standard", Class: "hdd", MinGB: 10, MaxGB: 65536, PricePerGBMonth: 0.04},
		{Type: "pd-balanced", Class: "balanced", MinGB: 10, MaxGB: 65536, PricePerGBMonth: 0.10},
		{Type: "pd-ssd", Class: "ssd", MinGB: 10, MaxGB: 65536, PricePerGBMonth: 0.17},
	}
}

// GCPDefaultStorage is a 10 GB pd-balanced boot disk.
func GCPDefaultStorage() StorageDefault {
	return StorageDefault{SizeGB: 10, PricePerGBMonth: 0.10}
}
