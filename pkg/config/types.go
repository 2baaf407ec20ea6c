package config

const (
	ModeEmbedded = "embedded"
	ModeLive     = "live"
)

type Config struct {
	Providers    ConfigProviders `yaml:"providers"`
	Search       SearchConfig    `yaml:"search"`
	Server       ServerConfig    `yaml:"server"`
	GPUAliasFile string          `yaml:"gpuAliasFile,omitempty"`
}

type ConfigProviders struct {
	AWS *ProviderConfig `yaml:"aws,omitempty"`
	GCP *ProviderConfig `yaml:"gcp,omitempty"`
}

type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"`
	// Regions to search; empty means the provider defaults.
	Regions []string `yaml:"regions"`
	// InstanceTypes are regular expressions; empty means all types.
	InstanceTypes []string `yaml:"instanceTypes"`
	Spot          *bool    `yaml:"spot,omitempty"`
	Timeout       string   `yaml:"timeout,omitempty"`

	// GCP live mode only.
	Project  string `yaml:"project,omitempty"`
	TokenEnv string `yaml:"tokenEnv,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

type SearchConfig struct {
	Limit           int    `yaml:"limit"`
	ProviderTimeout string `yaml:"providerTimeout"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	LogFormat string `yaml:"logFormat"`
}
