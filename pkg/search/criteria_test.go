package search

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCriteriaValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Criteria)
		valid  bool
	}{
		{"base", func(c *Criteria) {}, true},
		{"performance", func(c *Criteria) { c.Preference = PreferPerformance }, true},
		{"fractional vcpu", func(c *Criteria) { c.VCPU = 0.5 }, true},
		{"missing ip", func(c *Criteria) { c.UserIPAddress = "  " }, false},
		{"unknown preference", func(c *Criteria) { c.Preference = "cheapest" }, false},
		{"empty preference", func(c *Criteria) { c.Preference = "" }, false},
		{"zero vcpu", func(c *Criteria) { c.VCPU = 0 }, false},
		{"negative ram", func(c *Criteria) { c.RAMGB = -1 }, false},
		{"negative gpu count", func(c *Criteria) { c.GPUCount = -2 }, false},
		{"negative storage", func(c *Criteria) { c.StorageGB = -10 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := baseCriteria()
			tc.modify(&c)
			err := c.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidCriteria), "got %v", err)
		})
	}
}

func TestCriteriaNormalize(t *testing.T) {
	c := Criteria{GPUType: " A100 ", InstanceType: " t2.micro"}.Normalize()
	assert.Equal(t, "A100", c.GPUType)
	assert.Equal(t, 1, c.GPUCount)
	assert.Equal(t, "t2.micro", c.InstanceType)

	c = Criteria{GPUType: "T4", GPUCount: 4}.Normalize()
	assert.Equal(t, 4, c.GPUCount)

	c = Criteria{}.Normalize()
	assert.Equal(t, 0, c.GPUCount)
}
