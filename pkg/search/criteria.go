package search

import (
	"strings"

	"github.com/pkg/errors"
)

type Preference string

const (
	PreferPrice       Preference = "price"
	PreferPerformance Preference = "performance"
)

func (p Preference) Valid() bool {
	return p == PreferPrice || p == PreferPerformance
}

var ErrInvalidCriteria = errors.New("invalid criteria")

// Criteria describes the machine a caller is looking for. Zero values of the
// optional fields mean "no requirement".
type Criteria struct {
	VCPU          float64    `json:"vcpu"`
	RAMGB         float64    `json:"ram_gb"`
	GPUType       string     `json:"gpu_type,omitempty"`
	GPUCount      int        `json:"gpu_count,omitempty"`
	StorageGB     float64    `json:"storage_gb,omitempty"`
	StorageType   string     `json:"storage_type,omitempty"`
	InstanceType  string     `json:"instance_type,omitempty"`
	Preference    Preference `json:"preference"`
	UserIPAddress string     `json:"user_ip_address"`
}

// Validate reports the first field that makes c unusable, wrapped around
// ErrInvalidCriteria.
func (c Criteria) Validate() error {
	switch {
	case strings.TrimSpace(c.UserIPAddress) == "":
		return errors.Wrap(ErrInvalidCriteria, "user_ip_address is required")
	case !c.Preference.Valid():
		return errors.Wrapf(ErrInvalidCriteria, "preference must be %q or %q, got %q", PreferPrice, PreferPerformance, c.Preference)
	case c.VCPU <= 0:
		return errors.Wrapf(ErrInvalidCriteria, "vcpu must be greater than 0, got %v", c.VCPU)
	case c.RAMGB <= 0:
		return errors.Wrapf(ErrInvalidCriteria, "ram_gb must be greater than 0, got %v", c.RAMGB)
	case c.GPUCount < 0:
		return errors.Wrapf(ErrInvalidCriteria, "gpu_count must be greater than 0, got %d", c.GPUCount)
	case c.StorageGB < 0:
		return errors.Wrapf(ErrInvalidCriteria, "storage_gb must be greater than 0, got %v", c.StorageGB)
	}
	return nil
}

// Normalize trims the string fields and defaults gpu_count to 1 when a GPU
// type is requested.
func (c Criteria) Normalize() Criteria {
	c.GPUType = strings.TrimSpace(c.GPUType)
	c.StorageType = strings.TrimSpace(c.StorageType)
	c.InstanceType = strings.TrimSpace(c.InstanceType)
	if c.GPUType != "" && c.GPUCount == 0 {
		c.GPUCount = 1
	}
	return c
}
