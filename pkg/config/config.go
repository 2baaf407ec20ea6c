package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultProviderTimeout = 20 * time.Second
	DefaultAddr            = ":8080"
)

// NewConfig returns a configuration with both providers enabled in embedded
// mode.
func NewConfig() *Config {
	return &Config{
		Providers: ConfigProviders{
			AWS: &ProviderConfig{Enabled: true, Mode: ModeEmbedded, Regions: []string{}, InstanceTypes: []string{}},
			GCP: &ProviderConfig{Enabled: true, Mode: ModeEmbedded, Regions: []string{}, InstanceTypes: []string{},
				TokenEnv: "GCP_ACCESS_TOKEN"},
		},
		Search: SearchConfig{ProviderTimeout: DefaultProviderTimeout.String()},
		Server: ServerConfig{Addr: DefaultAddr, LogFormat: "text"},
	}
}

// ParseConfig reads filePath over the defaults of NewConfig.
func ParseConfig(filePath string) (*Config, error) {
	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config file %s", filePath)
	}

	config := NewConfig()
	if err := yaml.UnmarshalStrict(configFile, config); err != nil {
		return nil, errors.Wrapf(err, "could not parse config file %s", filePath)
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	for name, p := range map[string]*ProviderConfig{"aws": c.Providers.AWS, "gcp": c.Providers.GCP} {
		if p == nil {
			continue
		}
		switch p.Mode {
		case "":
			p.Mode = ModeEmbedded
		case ModeEmbedded, ModeLive:
		default:
			return errors.Errorf("%s: unknown mode %q", name, p.Mode)
		}
		if _, err := p.FetchTimeout(0); err != nil {
			return errors.Wrap(err, name)
		}
	}
	if p := c.Providers.GCP; p != nil && p.Enabled && p.Mode == ModeLive && p.Project == "" {
		return errors.New("gcp: live mode needs a project")
	}
	if c.Search.Limit < 0 {
		return errors.Errorf("search: negative limit %d", c.Search.Limit)
	}
	if _, err := c.Search.Timeout(); err != nil {
		return errors.Wrap(err, "search")
	}
	return nil
}

// SpotEnabled reports whether Spot records are produced; on by default.
func (p *ProviderConfig) SpotEnabled() bool {
	return p.Spot == nil || *p.Spot
}

// FetchTimeout returns the provider timeout, or def when none is set.
func (p *ProviderConfig) FetchTimeout(def time.Duration) (time.Duration, error) {
	if p.Timeout == "" {
		return def, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "bad timeout %q", p.Timeout)
	}
	return d, nil
}

func (s SearchConfig) Timeout() (time.Duration, error) {
	if s.ProviderTimeout == "" {
		return DefaultProviderTimeout, nil
	}
	d, err := time.ParseDuration(s.ProviderTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "bad providerTimeout %q", s.ProviderTimeout)
	}
	return d, nil
}
